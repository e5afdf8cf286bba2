// Package dispatcher routes engine commands to their handlers. The CLI and
// the streaming backend both funnel through it, so every command gets the
// same logging and metrics regardless of where it came from.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/shellfall/engine/v2/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Event is a command aimed at the engine, from the CLI or a remote stream.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*registration)

type registration struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered makes the handler asynchronous behind a queue of the given size.
// Dispatch returns "queued" immediately; the handler's own result is
// discarded.
func Buffered(size int) Option {
	return func(r *registration) {
		r.queueSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of
// dropping the event.
func Blocking() Option {
	return func(r *registration) {
		r.blocking = true
	}
}

// Logged wraps the handler with debug/error logging and timing.
func Logged() Option {
	return func(r *registration) {
		r.logged = true
	}
}

// Dispatcher routes events to registered handlers. Registration happens once
// at startup; Dispatch may then be called from any goroutine.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	dropped    metric.Int64Counter

	// queues tracks the buffered registrations for the gauge callback.
	mu     sync.RWMutex
	queues map[string]chan Event
}

// New creates a Dispatcher with the given logger. Instruments come from the
// global OTel meter, which is a no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}

	m := meter()
	var err error

	d.queueDepth, err = m.Int64ObservableGauge(
		"commands.queue.depth",
		metric.WithDescription("Events waiting in each command queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, q := range d.queues {
				o.ObserveInt64(d.queueDepth, int64(len(q)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue depth callback: %w", err)
	}

	d.handled, err = m.Int64Counter(
		"commands.handled",
		metric.WithDescription("Commands handled to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	d.dropped, err = m.Int64Counter(
		"commands.dropped",
		metric.WithDescription("Commands dropped on a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command. Options compose: a handler
// can be buffered and logged at once.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}

	handler := h
	if reg.queueSize > 0 {
		handler = d.enqueue(command, reg.queueSize, reg.blocking, handler)
	}
	if reg.logged {
		handler = d.logged(command, handler)
	}
	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler reports whether the command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// enqueue turns a handler asynchronous: one draining goroutine per command,
// started here and owned by the dispatcher for its lifetime.
func (d *Dispatcher) enqueue(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)
	go func() {
		for e := range q {
			h(e)
			d.handled.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			q <- e
			return "queued", nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case q <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
