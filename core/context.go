package core

import "context"

// Context keys for execution options
type contextKey string

const suppressProgressKey contextKey = "suppressProgress"

// WithSuppressProgress disables progress bars for operations run with this context.
// The MCP server uses it because stdio carries the protocol.
func WithSuppressProgress(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressProgressKey, true)
}

// shouldSuppressProgress returns whether progress bars should be hidden
func shouldSuppressProgress(ctx context.Context) bool {
	val := ctx.Value(suppressProgressKey)
	if val == nil {
		return false // default: show progress on terminals
	}
	suppress, ok := val.(bool)
	return ok && suppress
}
