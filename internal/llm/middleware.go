package llm

import (
	"context"
	"log"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithTimeout bounds every call by a hard wall-clock deadline. Cancellation
// aborts the in-flight network call, not just the local wait.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }
func (t *timed) GenerateText(ctx context.Context, p Prompt) (string, error) {
	if t.d <= 0 {
		return t.next.GenerateText(ctx, p)
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateText(ctx, p)
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateText(ctx context.Context, p Prompt) (string, error) {
	l.log.Printf("LLM request (%s): %d bytes", l.next.Name(), len(p.System)+len(p.Developer)+len(p.User))
	start := time.Now()
	text, err := l.next.GenerateText(ctx, p)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", l.next.Name(), time.Since(start).Round(time.Millisecond), err)
		return "", err
	}
	l.log.Printf("LLM response (%s): %d bytes in %s", l.next.Name(), len(text), time.Since(start).Round(time.Millisecond))
	return text, nil
}
