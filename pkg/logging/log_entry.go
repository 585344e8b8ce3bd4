package logging

import "context"

// LogEntry represents a structured log record with fields particularly
// relevant to optimization runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID     string // Identifier of the optimization run emitting the entry
	Iteration int    // Loop iteration the entry belongs to, -1 when outside the loop

	// General structured data
	Fields map[string]interface{}
}

type runIDKeyType struct{}

var runIDKey = runIDKeyType{}

// WithRunID annotates a context with the identifier of the current
// optimization run so every log line emitted under it carries the ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run identifier from the context, if any.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

type iterationKeyType struct{}

var iterationKey = iterationKeyType{}

// WithIteration annotates a context with the current loop iteration.
func WithIteration(ctx context.Context, iteration int) context.Context {
	return context.WithValue(ctx, iterationKey, iteration)
}

// GetIteration retrieves the loop iteration from the context, if any.
func GetIteration(ctx context.Context) (int, bool) {
	it, ok := ctx.Value(iterationKey).(int)
	return it, ok
}
