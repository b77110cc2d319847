// Package tools defines the external lookup capabilities the reasoning
// loop may invoke. Every tool is a read-only query against a system of
// record with an explicit not-found result shape, so absence is data the
// model can branch on rather than an error.
package tools

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Tool is one named lookup capability.
type Tool interface {
	Name() string
	Description() string
	Parameters() *genai.Schema
	// Invoke runs the lookup. Absence is expressed in the returned
	// payload, never as an error; errors mean the lookup itself broke.
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry holds the fixed tool set in registration order.
type Registry struct {
	order  []string
	byName map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Later registrations with the same name replace
// the earlier one.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.byName[t.Name()] = t
}

// Declarations returns function declarations for the reasoning capability
// in registration order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return decls
}

// Invoke dispatches one tool call by name.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.Invoke(ctx, args)
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
