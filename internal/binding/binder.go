// Package binding subscribes form rule sets to the events of a rendered
// page: one ready event when the form is first displayed and a change
// event each time a driver field changes.
//
// Dispatch is synchronous. A page delivers its events one at a time, so
// each evaluation completes before the next event is handled.
package binding

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/edidform/internal/logging"
	"github.com/matthewbaird/edidform/internal/visibility"
)

// EventType distinguishes the two triggers of an evaluation.
type EventType string

const (
	EventReady  EventType = "ready"
	EventChange EventType = "change"
)

// Event is one trigger from the page. Field is set for change events.
type Event struct {
	Type  EventType
	Field string
	ID    string
}

// Result maps section names to their evaluated state.
type Result map[string]visibility.State

// Sink applies evaluated state to a UI. Implementations are called from the
// goroutine that delivered the event.
type Sink interface {
	Apply(ctx context.Context, evt Event, res Result) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event, res Result) error

func (f SinkFunc) Apply(ctx context.Context, evt Event, res Result) error {
	return f(ctx, evt, res)
}

type namedSink struct {
	name string
	sink Sink
}

// Binder evaluates the sections of one form in response to page events.
type Binder struct {
	sets     []visibility.RuleSet
	byDriver map[string][]int

	mu    sync.RWMutex
	sinks []namedSink

	log zerolog.Logger
}

// New binds the given rule sets. Every (driver, section) pair is
// subscribed once, however many rules of the section read the driver.
func New(sets []visibility.RuleSet) *Binder {
	b := &Binder{
		sets:     sets,
		byDriver: make(map[string][]int),
		log:      logging.Component("binding"),
	}
	for i, rs := range sets {
		for _, f := range rs.Drivers() {
			b.byDriver[f] = append(b.byDriver[f], i)
		}
	}
	return b
}

// Subscribe registers a named sink. Sinks run in registration order.
func (b *Binder) Subscribe(name string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, namedSink{name: name, sink: s})
}

// Drivers returns the fields whose changes trigger an evaluation.
func (b *Binder) Drivers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, rs := range b.sets {
		for _, f := range rs.Drivers() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// IsDriver reports whether a change to field triggers an evaluation.
func (b *Binder) IsDriver(field string) bool {
	_, ok := b.byDriver[field]
	return ok
}

// Ready evaluates every section of the form.
func (b *Binder) Ready(ctx context.Context, form visibility.Form) Result {
	return b.Handle(ctx, Event{Type: EventReady}, form)
}

// Change evaluates the sections that read field.
func (b *Binder) Change(ctx context.Context, field string, form visibility.Form) Result {
	return b.Handle(ctx, Event{Type: EventChange, Field: field}, form)
}

// Handle evaluates the sections subscribed to evt and hands the result to
// every sink. A change to a field no rule reads yields an empty result and
// reaches no sink.
func (b *Binder) Handle(ctx context.Context, evt Event, form visibility.Form) Result {
	var idx []int
	switch evt.Type {
	case EventReady:
		for i := range b.sets {
			idx = append(idx, i)
		}
	case EventChange:
		idx = b.byDriver[evt.Field]
	}
	if len(idx) == 0 {
		return Result{}
	}

	res := make(Result, len(idx))
	for _, i := range idx {
		rs := b.sets[i]
		st, diags := visibility.Explain(rs, form)
		for _, d := range diags {
			b.log.Debug().
				Str("section", d.Section).
				Str("rule", d.Rule).
				Str("field", d.Field).
				Str("kind", d.Kind).
				Msg("rule fell back")
		}
		res[rs.Section] = st
	}

	b.dispatch(ctx, evt, res)
	return res
}

func (b *Binder) dispatch(ctx context.Context, evt Event, res Result) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.Apply(ctx, evt, res); err != nil {
			b.log.Warn().Err(err).
				Str("sink", s.name).
				Str("event", string(evt.Type)).
				Msg("sink failed")
		}
	}
}
