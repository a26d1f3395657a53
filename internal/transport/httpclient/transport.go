// Package httpclient reports outbound HTTP requests to a tracker.
//
// Every request made through a Transport begins a tracked call before it is
// dispatched and ends it exactly once when it settles: on a transport error,
// or when the response body is read to EOF, fails, or is closed. Callers
// must close response bodies, as net/http already requires.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliamunaev/inflight/internal/apperr"
	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/tracker"
)

// KeyFunc derives the URL string handed to the tracker.
type KeyFunc func(*http.Request) string

// HostPath is the default KeyFunc: host and path, without scheme or query.
func HostPath(r *http.Request) string {
	return r.URL.Host + r.URL.Path
}

// Hooks run at fixed points of every request. Any field may be nil.
type Hooks struct {
	// Before runs before the request is dispatched.
	Before func(*http.Request)
	// Success runs when response headers arrive, whatever the status code.
	Success func(*http.Request, *http.Response)
	// Error runs when the round trip fails.
	Error func(*http.Request, error)
	// Finally runs once the call has settled and the tracker was updated.
	Finally func(*http.Request)
}

// Recorder receives call outcomes, e.g. for metrics.
type Recorder interface {
	CallFinished(outcome string, d time.Duration)
	CallExcluded()
}

// Transport is an http.RoundTripper that tracks in-flight calls.
type Transport struct {
	tracker *tracker.Tracker
	next    http.RoundTripper
	key     KeyFunc
	hooks   Hooks
	rec     Recorder
	log     *logging.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithKeyFunc overrides how the tracked URL is derived.
func WithKeyFunc(fn KeyFunc) Option {
	return func(t *Transport) {
		if fn != nil {
			t.key = fn
		}
	}
}

// WithHooks sets request lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(t *Transport) { t.hooks = h }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Transport) { t.rec = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l.Named("httpclient")
		}
	}
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
// It panics if tr is nil.
func NewTransport(tr *tracker.Tracker, next http.RoundTripper, opts ...Option) *Transport {
	if tr == nil {
		panic("httpclient.NewTransport: nil tracker")
	}
	if next == nil {
		next = http.DefaultTransport
	}
	t := &Transport{
		tracker: tr,
		next:    next,
		key:     HostPath,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewClient returns a shallow copy of base whose transport is tracked.
// A nil base starts from a zero http.Client.
func NewClient(tr *tracker.Tracker, base *http.Client, opts ...Option) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = NewTransport(tr, c.Transport, opts...)
	return c
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := t.key(req)
	call := t.tracker.Begin(key)
	ctx := logging.WithCallID(req.Context(), call.ID)

	if call.Excluded && t.rec != nil {
		t.rec.CallExcluded()
	}
	if t.hooks.Before != nil {
		t.hooks.Before(req)
	}

	start := time.Now()
	var once sync.Once
	settle := func(status int, err error) {
		once.Do(func() { t.settle(ctx, req, call, start, status, err) })
	}

	res, err := t.next.RoundTrip(req)
	if err != nil {
		if t.hooks.Error != nil {
			t.hooks.Error(req, err)
		}
		settle(0, err)
		return nil, err
	}

	if t.hooks.Success != nil {
		t.hooks.Success(req, res)
	}

	if res.Body == nil || res.Body == http.NoBody {
		settle(res.StatusCode, nil)
		return res, nil
	}

	body := &trackedBody{ReadCloser: res.Body, done: func(err error) { settle(res.StatusCode, err) }}
	if rw, ok := res.Body.(io.ReadWriteCloser); ok {
		res.Body = &trackedReadWriteBody{trackedBody: body, w: rw}
	} else {
		res.Body = body
	}
	return res, nil
}

func (t *Transport) settle(ctx context.Context, req *http.Request, call *tracker.Call, start time.Time, status int, err error) {
	call.End()
	d := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = apperr.Kind(err)
	}
	if t.rec != nil && !call.Excluded {
		t.rec.CallFinished(outcome, d)
	}

	t.log.Debug(ctx, "call settled",
		zap.String("method", req.Method),
		zap.String("url", call.URL),
		zap.Bool("excluded", call.Excluded),
		zap.Int("status", status),
		zap.String("outcome", outcome),
		zap.Duration("duration", d),
	)

	if t.hooks.Finally != nil {
		t.hooks.Finally(req)
	}
}

// trackedBody settles the call at EOF, on a read error, or on Close.
type trackedBody struct {
	io.ReadCloser
	done func(error)
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	switch {
	case err == io.EOF:
		b.done(nil)
	case err != nil:
		b.done(err)
	}
	return n, err
}

func (b *trackedBody) Close() error {
	err := b.ReadCloser.Close()
	b.done(nil)
	return err
}

// trackedReadWriteBody keeps 101 Switching Protocols bodies writable.
type trackedReadWriteBody struct {
	*trackedBody
	w io.Writer
}

func (b *trackedReadWriteBody) Write(p []byte) (int, error) {
	return b.w.Write(p)
}
