package session

import (
	"bufio"
	"fmt"
	"strconv"
)

// replyWriter renders FTP replies per RFC 959 §4.2's single-line and
// multi-line framing.
type replyWriter struct {
	w *bufio.Writer
}

func newReplyWriter(w *bufio.Writer) *replyWriter {
	return &replyWriter{w: w}
}

// Send writes a single-line reply: "CODE TEXT\r\n".
func (r *replyWriter) Send(code int, text string) error {
	_, err := fmt.Fprintf(r.w, "%d %s\r\n", code, text)
	if err != nil {
		return err
	}
	return r.w.Flush()
}

// SendMulti writes a multi-line reply per RFC 959: the first line uses
// "CODE-text", every following line up to the last is indented with a
// leading space, and the final line repeats "CODE text" without the
// dash. A single-element lines behaves like Send.
func (r *replyWriter) SendMulti(code int, lines []string) error {
	if len(lines) == 0 {
		return r.Send(code, "")
	}
	if len(lines) == 1 {
		return r.Send(code, lines[0])
	}
	codeStr := strconv.Itoa(code)
	for i, line := range lines {
		var err error
		switch {
		case i == 0:
			_, err = fmt.Fprintf(r.w, "%s-%s\r\n", codeStr, line)
		case i == len(lines)-1:
			_, err = fmt.Fprintf(r.w, "%s %s\r\n", codeStr, line)
		default:
			_, err = fmt.Fprintf(r.w, " %s\r\n", line)
		}
		if err != nil {
			return err
		}
	}
	return r.w.Flush()
}
