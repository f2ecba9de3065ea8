package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
)

// Submitter forwards one accepted scan and returns the token to show.
type Submitter interface {
	Submit(ctx context.Context, uid string, scannedAt time.Time) (string, error)
}

// Bridge relays a reader's line stream to the core. Every accepted line gets
// exactly one token line back; debounced repeats get nothing.
type Bridge struct {
	submitter Submitter
	debouncer *Debouncer
	now       func() time.Time
}

func New(submitter Submitter, debouncer *Debouncer) *Bridge {
	return &Bridge{
		submitter: submitter,
		debouncer: debouncer,
		now:       time.Now,
	}
}

// Serve processes lines from r until it is exhausted or ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		token := b.handleLine(ctx, line)
		if token == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, token); err != nil {
			return fmt.Errorf("write token: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read reader stream: %w", err)
	}
	return nil
}

// handleLine returns the token for line, or "" when the read was debounced.
func (b *Bridge) handleLine(ctx context.Context, line string) string {
	scannedAt := b.now()

	uid, err := attendance.ParseScanLine(line)
	if err != nil {
		slog.Warn("Bridge: rejected reader line", "line", line)
		return attendance.RejectionToken(err)
	}

	if b.debouncer != nil && !b.debouncer.Allow(uid) {
		slog.Debug("Bridge: debounced repeat read", "uid", uid)
		return ""
	}

	token, err := b.submitter.Submit(ctx, uid, scannedAt)
	if err != nil {
		slog.Error("Bridge: scan submission failed", "uid", uid, "error", err)
	}
	return token
}
