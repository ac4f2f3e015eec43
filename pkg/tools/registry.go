package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Result is the uniform shape every tool returns: a one-line summary, detail
// bullets, and machine-readable data.
type Result struct {
	Summary string         `json:"summary"`
	Bullets []string       `json:"bullets"`
	Data    map[string]any `json:"data"`
}

// Invocation carries the filled slot map plus the raw utterance (some tools,
// like policy search and fraud intake, consume the utterance directly).
type Invocation struct {
	Slots     map[string]string
	Utterance string
}

// Handler executes one banking capability.
type Handler interface {
	Execute(ctx context.Context, inv Invocation) (*Result, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, inv Invocation) (*Result, error)

func (f HandlerFunc) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	return f(ctx, inv)
}

var ErrNotRegistered = errors.New("tool not registered")

// Registry maps intent names to tool handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) Register(name string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || handler == nil {
		return fmt.Errorf("tool registration requires a name and a handler")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

func (r *Registry) Execute(ctx context.Context, name string, inv Invocation) (*Result, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return handler.Execute(ctx, inv)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
