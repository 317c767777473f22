package datachannel

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/m4mm0n/amFTPd-sub003/pkg/ftperr"
)

// chunkSize is the fixed buffer size the transfer loop streams in.
const chunkSize = 64 * 1024

// Counters receives per-chunk byte updates so the caller can fold them
// into session, user, and global stats without the transfer loop knowing
// about any of those systems directly.
type Counters interface {
	AddBytes(n int64)
}

// NopCounters discards updates; useful in tests and for callers that
// don't track stats.
type NopCounters struct{}

func (NopCounters) AddBytes(int64) {}

// Limiter shapes throughput in KiB/s using a token bucket, matching
// the "delays reads, does not drop bytes" backpressure rule.
// A nil *rate.Limiter (via NewLimiter with limit <= 0) means unlimited.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter builds a Limiter capped at kibPerSec KiB/s. kibPerSec <= 0
// means unlimited.
func NewLimiter(kibPerSec int) *Limiter {
	if kibPerSec <= 0 {
		return &Limiter{}
	}
	bytesPerSec := float64(kibPerSec) * 1024
	return &Limiter{rl: rate.NewLimiter(rate.Limit(bytesPerSec), chunkSize)}
}

func (l *Limiter) wait(ctx context.Context, n int) error {
	if l == nil || l.rl == nil {
		return nil
	}
	return l.rl.WaitN(ctx, n)
}

// Transfer streams from src to dst in chunkSize buffers, applying rate
// shaping and byte counting per chunk, and honoring ctx cancellation
// (tripped by ABOR or session shutdown). It returns the number of bytes
// moved and a classified *ftperr.Result on failure.
//
// direction is Retrieve when the server is reading from disk and writing
// to the network (RETR), Store when the server is reading from the
// network and writing to disk (STOR/APPE). It only affects reply-code
// classification: a write error of ENOSPC maps to 552 only for Store.
func Transfer(ctx context.Context, dst io.Writer, src io.Reader, direction Direction, limiter *Limiter, counters Counters) (int64, *ftperr.Result) {
	if counters == nil {
		counters = NopCounters{}
	}
	buf := make([]byte, chunkSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, abortResult(ctx.Err())
		default:
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if werr := limiter.wait(ctx, n); werr != nil {
				return total, abortResult(werr)
			}
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			counters.AddBytes(int64(wn))
			if werr != nil {
				return total, classifyIOErr(direction, werr)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return total, nil
			}
			return total, classifyIOErr(direction, rerr)
		}
	}
}

func abortResult(err error) *ftperr.Result {
	if errors.Is(err, context.Canceled) {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 426, Message: "Transfer aborted.", CloseSession: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 421, Message: "Data timeout.", CloseSession: true}
	}
	return &ftperr.Result{Kind: ftperr.Transfer, Code: 426, Message: "Transfer aborted: " + err.Error()}
}

// classifyIOErr maps the failure modes the error table lists:
// connection-closed -> 426, timeout -> 421, disk full -> 552, permission
// -> 550.
func classifyIOErr(direction Direction, err error) *ftperr.Result {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 421, Message: "Data connection timed out.", CloseSession: true}
	}
	var opErr *net.OpError
	if errors.Is(err, io.ErrClosedPipe) || errors.As(err, &opErr) {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 426, Message: "Connection closed; transfer aborted."}
	}
	if direction == Store && errors.Is(err, syscall.ENOSPC) {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 552, Message: "Disk full; transfer aborted."}
	}
	if os.IsPermission(err) {
		return &ftperr.Result{Kind: ftperr.Transfer, Code: 550, Message: "Permission denied."}
	}
	return &ftperr.Result{Kind: ftperr.Transfer, Code: 426, Message: "Transfer failed: " + err.Error()}
}

// ApplyREST seeks a freshly opened file to offset before a transfer
// begins, implementing the REST handling. offset of 0 is a
// no-op seek, kept simple since REST 0 is valid and common.
func ApplyREST(f *os.File, offset int64) error {
	if offset == 0 {
		return nil
	}
	_, err := f.Seek(offset, io.SeekStart)
	return err
}
