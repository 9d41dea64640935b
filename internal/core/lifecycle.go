package core

import "context"

// Validator is implemented by components that can verify their settings
// before anything starts. Validate should be read-only.
type Validator interface {
	Validate() error
}

// Starter is implemented by components that start background work
// (listeners, exporters). Start must not block.
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to release resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}
