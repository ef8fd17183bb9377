// Package timeline mirrors the timeline visibility state of a table view onto
// its rendered container.
package timeline

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-filters/pkg/state"
)

// Selectors and class toggled by ContainerRenderer.
const (
	TimelineSideSelector = ".work-packages-tabletimeline--timeline-side"
	TableSideSelector    = ".work-packages-tabletimeline--table-side"
	TimelineVisibleClass = "-timeline-visible"
)

// ErrStarted is returned by Start on a publisher that is already running.
var ErrStarted = errors.New("timeline: publisher already started")

// State is the timeline state of one view.
type State struct {
	Visible bool `json:"visible"`
}

// Renderer consumes the visibility flag.
type Renderer interface {
	SetVisible(visible bool)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(visible bool)

// SetVisible implements Renderer.
func (f RendererFunc) SetVisible(visible bool) {
	if f != nil {
		f(visible)
	}
}

// Container is the rendered table element.
type Container interface {
	Toggle(selector string, visible bool)
	ToggleClass(selector, class string, on bool)
}

// ContainerRenderer shows or hides the timeline side and flags the table side.
// Both writes are idempotent.
type ContainerRenderer struct {
	Container Container
}

// SetVisible implements Renderer.
func (r ContainerRenderer) SetVisible(visible bool) {
	if r.Container == nil {
		return
	}
	r.Container.Toggle(TimelineSideSelector, visible)
	r.Container.ToggleClass(TableSideSelector, TimelineVisibleClass, visible)
}

// Publisher forwards every timeline state write to a Renderer until its
// context is cancelled or Stop is called.
type Publisher struct {
	input    *state.Input[State]
	renderer Renderer

	mu  sync.Mutex
	sub *state.Subscription
}

// NewPublisher binds input to renderer. Nothing is rendered before Start.
func NewPublisher(input *state.Input[State], renderer Renderer) *Publisher {
	return &Publisher{input: input, renderer: renderer}
}

// Start subscribes to the state. The current value, when present, is rendered
// immediately.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub.Active() {
		return ErrStarted
	}
	if p.input == nil || p.renderer == nil {
		return errors.New("timeline: publisher needs an input and a renderer")
	}
	p.sub = p.input.Subscribe(ctx, func(s State) {
		p.renderer.SetVisible(s.Visible)
	})
	return nil
}

// Running reports whether the publisher is subscribed.
func (p *Publisher) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sub.Active()
}

// Stop releases the subscription.
func (p *Publisher) Stop() {
	p.mu.Lock()
	sub := p.sub
	p.sub = nil
	p.mu.Unlock()
	sub.Unsubscribe()
}
