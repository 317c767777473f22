package session

import (
	"bufio"
	"strings"
	"testing"
)

func newReplyBuf() (*replyWriter, *strings.Builder) {
	var sb strings.Builder
	return newReplyWriter(bufio.NewWriter(&sb)), &sb
}

func TestSendSingleLine(t *testing.T) {
	rw, sb := newReplyBuf()
	if err := rw.Send(200, "NOOP ok."); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := sb.String(); got != "200 NOOP ok.\r\n" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestSendMultiFraming(t *testing.T) {
	rw, sb := newReplyBuf()
	if err := rw.SendMulti(214, []string{"Commands:", "USER PASS", "End"}); err != nil {
		t.Fatalf("SendMulti: %v", err)
	}
	want := "214-Commands:\r\n USER PASS\r\n214 End\r\n"
	if got := sb.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSendMultiSingleLineFallsBackToSend(t *testing.T) {
	rw, sb := newReplyBuf()
	rw.SendMulti(200, []string{"only line"})
	if got := sb.String(); got != "200 only line\r\n" {
		t.Fatalf("unexpected reply: %q", got)
	}
}
