package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Publisher broadcasts a delta. Publish never fails the caller: a mutation
// that has been accepted stays accepted whatever its subscribers do.
type Publisher interface {
	Publish(ctx context.Context, d Delta)
}

// EventHandlerFunc handles a delta.
type EventHandlerFunc func(ctx context.Context, d Delta) error

// HandlerRegistration represents a handler registration for specific delta types.
type HandlerRegistration struct {
	EventTypes []string
	Handler    EventHandlerFunc
	Name       string
}

// EventDispatcher dispatches deltas to registered handlers in registration
// order. Handlers run on the caller's goroutine, so they must only enqueue.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError determines if dispatch should continue when a handler fails
	ContinueOnError bool
	logger          *slog.Logger
}

type namedHandler struct {
	name    string
	handler EventHandlerFunc
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{
		handlers:        make(map[string][]namedHandler),
		ContinueOnError: true,
		logger:          logger,
	}
}

// Register registers a handler for specific delta types.
func (d *EventDispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nh := namedHandler{name: reg.Name, handler: reg.Handler}
	for _, eventType := range reg.EventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], nh)
	}
}

// RegisterHandler is a convenience method to register a single handler for delta types.
func (d *EventDispatcher) RegisterHandler(name string, handler EventHandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{
		Name:       name,
		Handler:    handler,
		EventTypes: eventTypes,
	})
}

// RegisterWildcard registers a handler for all deltas (wildcard "*").
func (d *EventDispatcher) RegisterWildcard(name string, handler EventHandlerFunc) {
	d.RegisterHandler(name, handler, "*")
}

// Dispatch delivers a delta to the handlers of its type, then to wildcard
// handlers. If ContinueOnError is false, dispatch stops at the first error.
func (d *EventDispatcher) Dispatch(ctx context.Context, delta Delta) error {
	d.mu.RLock()
	var handlers []namedHandler
	handlers = append(handlers, d.handlers[delta.Type]...)
	handlers = append(handlers, d.handlers["*"]...)
	continueOnError := d.ContinueOnError
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, delta); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for %s: %w", nh.name, delta.Type, err)
			if !continueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}

	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// Publish dispatches a delta and logs handler failures.
func (d *EventDispatcher) Publish(ctx context.Context, delta Delta) {
	if err := d.Dispatch(ctx, delta); err != nil {
		d.logger.Warn("delta handler failed",
			"type", delta.Type,
			"topic", delta.Topic,
			"version", delta.Version,
			"error", err,
		)
	}
}

// HasHandlers returns true if there are handlers registered for the given delta type.
func (d *EventDispatcher) HasHandlers(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.handlers[eventType]) > 0 || len(d.handlers["*"]) > 0
}

// HandlerCount returns the number of handlers registered for a delta type.
func (d *EventDispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := len(d.handlers[eventType])
	if eventType != "*" {
		count += len(d.handlers["*"])
	}
	return count
}

// Clear removes all registered handlers.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[string][]namedHandler)
}

// DispatchError contains multiple errors from delta dispatch.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap returns the first error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Recorder collects published deltas. It is useful wherever a Publisher is
// needed without live subscribers.
type Recorder struct {
	mu     sync.Mutex
	deltas []Delta
}

// Publish appends the delta.
func (r *Recorder) Publish(_ context.Context, d Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, d)
}

// Deltas returns a copy of everything recorded so far.
func (r *Recorder) Deltas() []Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delta(nil), r.deltas...)
}

// Reset drops recorded deltas.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = nil
}
