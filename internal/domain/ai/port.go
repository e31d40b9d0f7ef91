package ai

import "context"

// Client sends one system+user exchange to a narrative-generation provider.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
