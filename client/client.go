// Package client is the public façade: it spawns a language server
// subprocess, wires the codec, classifier, pump, and correlator together,
// and exposes the typed request/notification methods an application calls.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lspconn/lspconn/childproc"
	"github.com/lspconn/lspconn/logger"
	"github.com/lspconn/lspconn/protocol"
	"github.com/lspconn/lspconn/rpc"
	"github.com/lspconn/lspconn/watch"
)

// ErrDeserialize is wrapped by errors returned when a typed method's
// result doesn't match the expected schema. This is never fatal to the
// transport — it surfaces only to the caller that made the request.
var ErrDeserialize = errors.New("lspconn: result does not match expected schema")

// Config configures a Client. Every field is optional; the zero value is
// a usable default (no timeout, no rate limit, no circuit breaker,
// discarded stderr, silent logging).
type Config struct {
	// Dir is the child's working directory; empty inherits the caller's.
	Dir string
	// Env overrides the child's environment; nil inherits the caller's.
	Env []string
	// Stderr receives the child's stderr; nil discards it.
	Stderr io.Writer
	// Logger receives lspconn's own diagnostic output; nil is silent.
	Logger logger.Logger
	// RequestsPerSecond throttles outbound Call/Notify submission; zero
	// means unlimited. This is the backpressure knob the protocol design
	// explicitly leaves optional for implementers to add.
	RequestsPerSecond float64
	// BreakerFailureRatio and BreakerMinRequests configure the circuit
	// breaker that trips after a run of transport failures so a wedged
	// server fails fast instead of queuing requests behind a dead pipe.
	// A zero BreakerMinRequests disables the breaker.
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenTimeout  time.Duration
	// ShutdownGrace bounds how long Close waits for the child to exit
	// after stdin is closed.
	ShutdownGrace time.Duration
	// WatchRoot, if non-empty, starts a recursive filesystem watcher over
	// that directory: debounced bursts of changes are turned into
	// workspace/didChangeWatchedFiles notifications sent to the server
	// automatically. Empty disables watching entirely — Dial never
	// constructs a watch.Watcher in that case.
	WatchRoot string
	// WatchDebounce and WatchIgnoreDirs configure the watcher when
	// WatchRoot is set; see watch.Options for their defaults.
	WatchDebounce   time.Duration
	WatchIgnoreDirs map[string]bool
}

// Client is a live connection to one language server subprocess. Create
// one with Dial; it is safe for concurrent use by multiple goroutines —
// every Call gets its own response slot in the correlator.
type Client struct {
	proc       *childproc.Process
	correlator *rpc.Correlator
	pump       *rpc.Pump
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     logger.Logger

	notifications chan rpc.Notification
	watcher       *watch.Watcher

	group    *errgroup.Group
	cancel   context.CancelFunc
	closeOnce sync.Once

	dead    atomic.Bool
	deadErr atomic.Pointer[error]
}

// Dial spawns lang's command line, wires the transport, and returns a
// Client ready to accept typed method calls. ctx governs the Client's
// entire lifetime, not just the spawn: cancelling it tears the Client down
// the same way Close does. Pass context.Background() for a Client that
// should live until Close is called explicitly.
func Dial(ctx context.Context, lang Language, cfg Config) (*Client, error) {
	argv := lang.Command()

	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = 2 * time.Second
	}

	proc, err := childproc.Spawn(argv, childproc.Options{
		Dir:           cfg.Dir,
		Env:           cfg.Env,
		Stderr:        cfg.Stderr,
		ShutdownGrace: grace,
	})
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NullLogger{}
	}

	runCtx, cancel := context.WithCancel(ctx)

	c := &Client{
		proc:          proc,
		correlator:    rpc.NewCorrelator(proc),
		pump:          rpc.NewPump(bufio.NewReader(proc), log.WithFields(map[string]any{"component": "pump"}).Info),
		logger:        log,
		notifications: make(chan rpc.Notification, 64),
		cancel:        cancel,
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	if cfg.BreakerMinRequests > 0 {
		ratio := cfg.BreakerFailureRatio
		if ratio <= 0 {
			ratio = 0.6
		}
		openTimeout := cfg.BreakerOpenTimeout
		if openTimeout <= 0 {
			openTimeout = 30 * time.Second
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "lspconn",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= cfg.BreakerMinRequests &&
					float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
			},
		})
	}

	g, gctx := errgroup.WithContext(runCtx)
	c.group = g

	g.Go(func() error {
		return c.pump.Run()
	})
	g.Go(func() error {
		return c.deliverLoop(gctx)
	})
	g.Go(func() error {
		return c.notificationLoop(gctx)
	})

	go c.supervise()
	go func() {
		<-runCtx.Done()
		c.Close()
	}()

	if cfg.WatchRoot != "" {
		w, err := watch.New(cfg.WatchRoot, c.handleWatchedFilesChanged, watch.Options{
			Debounce:   cfg.WatchDebounce,
			IgnoreDirs: cfg.WatchIgnoreDirs,
			Logger:     log,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("lspconn: starting watcher: %w", err)
		}
		c.watcher = w
	}

	return c, nil
}

// handleWatchedFilesChanged is the watch.Watcher callback wired in when
// Config.WatchRoot is set: it turns a debounced burst of changed paths into
// a single workspace/didChangeWatchedFiles notification. Errors are logged,
// not returned — there is no caller on the other end of a filesystem
// event to hand an error to.
func (c *Client) handleWatchedFilesChanged(changed []string) {
	if c.dead.Load() {
		return
	}
	params := protocol.DidChangeWatchedFilesParams{Changes: watch.ToFileEvents(changed)}
	if err := c.DidChangeWatchedFiles(context.Background(), params); err != nil {
		c.logger.Info("lspconn: sending didChangeWatchedFiles: %v", err)
	}
}

// supervise waits for the goroutine group to end (pump termination,
// decode error, or Close), then marks the Client dead and unblocks every
// pending and future Call/Notify with the terminal error. A decode error
// or stream EOF is fatal exactly once; this is where that fatality
// propagates outward.
func (c *Client) supervise() {
	err := c.group.Wait()
	if err == nil {
		err = rpc.ErrTransportClosed
	} else {
		err = fmt.Errorf("%w: %v", rpc.ErrTransportClosed, err)
	}
	c.deadErr.Store(&err)
	c.dead.Store(true)
	c.correlator.Close(err)
	close(c.notifications)
}

func (c *Client) deliverLoop(ctx context.Context) error {
	for {
		select {
		case resp, ok := <-c.pump.Responses():
			if !ok {
				return nil
			}
			c.correlator.Deliver(resp, func(format string, args ...any) {
				c.logger.WithFields(map[string]any{"id": resp.ID}).Info(format, args...)
			})
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) notificationLoop(ctx context.Context) error {
	for {
		select {
		case n, ok := <-c.pump.Notifications():
			if !ok {
				return nil
			}
			c.forwardNotification(n)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) forwardNotification(n rpc.Notification) {
	c.notifications <- n
}

// Notifications returns the stream of server-originated notifications, in
// the server's emission order. A server-to-client *request* (one with
// both an id and a method, e.g. workspace/configuration) is downgraded to
// a plain notification on this same stream — this client has no separate
// channel for answering server requests — and logged at Info level so the
// fact that a reply was expected isn't silently lost.
//
// There is exactly one consumer slot: fan-out to multiple goroutines is
// the caller's responsibility.
func (c *Client) Notifications() <-chan rpc.Notification {
	return c.notifications
}

// Call submits a JSON-RPC request and waits for its response, decoding
// the result into out (which may be nil to discard it). The returned
// request id is useful for a caller that wants to send a matching
// $/cancelRequest notification after dropping the wait.
//
// If the response carries a JSON-RPC error object, Call returns it as a
// *rpc.ResponseError — the normal "server said no" path, not a transport
// failure. A result that fails to unmarshal into out returns an error
// wrapping ErrDeserialize; this does not affect the transport or any other
// in-flight call.
func (c *Client) Call(ctx context.Context, method string, params any, out any) (id string, err error) {
	if c.dead.Load() {
		return "", c.terminalError()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("lspconn: encoding %s params: %w", method, err)
	}

	id = uuid.NewString()

	resp, err := c.executeCall(ctx, id, method, paramsJSON)
	if err != nil {
		return id, err
	}

	if resp.Error != nil {
		return id, resp.Error
	}
	if resp.Result == nil {
		return id, fmt.Errorf("%w: %s returned neither result nor error", rpc.ErrProtocol, method)
	}
	if out == nil {
		return id, nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return id, fmt.Errorf("%w: decoding %s result: %v", ErrDeserialize, method, err)
	}
	return id, nil
}

func (c *Client) executeCall(ctx context.Context, id, method string, params []byte) (rpc.Response, error) {
	if c.breaker == nil {
		return c.correlator.Call(ctx, id, method, params)
	}
	result, err := c.breaker.Execute(func() (any, error) {
		return c.correlator.Call(ctx, id, method, params)
	})
	if err != nil {
		if resp, ok := result.(rpc.Response); ok {
			return resp, err
		}
		return rpc.Response{}, err
	}
	return result.(rpc.Response), nil
}

// Notify submits a fire-and-forget JSON-RPC notification.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	if c.dead.Load() {
		return c.terminalError()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("lspconn: encoding %s params: %w", method, err)
	}
	return c.correlator.Notify(method, paramsJSON)
}

func (c *Client) terminalError() error {
	if p := c.deadErr.Load(); p != nil {
		return *p
	}
	return rpc.ErrTransportClosed
}

// Close initiates orderly shutdown: it cancels the pump's run context,
// closes the child's stdin (signalling EOF), drains remaining stdout, and
// reaps the process. Pending calls observe TransportClosed. Close is safe
// to call more than once.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		if c.watcher != nil {
			c.watcher.Close()
		}
		c.cancel()
		closeErr = c.proc.Close()
		c.group.Wait()
	})
	return closeErr
}

// Pid returns the child process id, for diagnostics.
func (c *Client) Pid() int { return c.proc.Pid() }
