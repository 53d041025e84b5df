package xcmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted is returned when the process receives a termination signal.
type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// IsInterrupted reports whether the error chain contains an [Interrupted]
// error.
func IsInterrupted(err error) bool {
	var interrupted Interrupted
	return errors.As(err, &interrupted)
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received or
// the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := notify()
	defer signal.Stop(ch)

	return wait(ctx, ch)
}

// NotifyContext returns a copy of the parent context that is canceled with an
// [Interrupted] cause on the first SIGINT or SIGTERM.
//
// The signal handler is installed before NotifyContext returns. The returned
// stop function releases it and must be called.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	ch := notify()

	go func() {
		defer signal.Stop(ch)

		if err := wait(ctx, ch); IsInterrupted(err) {
			cancel(err)
		}
	}()

	return ctx, func() { cancel(nil) }
}

func notify() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch
}

func wait(ctx context.Context, ch <-chan os.Signal) error {
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
