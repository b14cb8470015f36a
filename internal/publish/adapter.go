package publish

import (
	"context"
	"fmt"

	"pressroom/internal/model"
)

// Result is what a platform adapter returns on a successful publish.
type Result struct {
	RemoteID  string `json:"remote_id,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// Adapter publishes a content snapshot to one third-party platform. Errors
// returned by Publish are fed through Classify to decide retry behavior.
type Adapter interface {
	Publish(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*Result, error)
}

// Registry resolves adapters by platform identifier.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a platform identifier, replacing any previous
// binding.
func (r *Registry) Register(platform string, a Adapter) {
	r.adapters[platform] = a
}

// Resolve returns the adapter for platform. An unknown platform is a
// terminal failure: retrying cannot make an adapter appear.
func (r *Registry) Resolve(platform string) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, &TerminalExecutionError{Reason: fmt.Sprintf("no adapter registered for platform %q", platform)}
	}
	return a, nil
}

// Platforms lists the registered platform identifiers.
func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
