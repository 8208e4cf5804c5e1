package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	candidateKey contextKey = "candidate"
	strategyKey  contextKey = "strategy"
)

// WithRunID annotates context with the run log session identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCandidate annotates context with the path of the file being worked on.
func WithCandidate(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, candidateKey, path)
}

// CandidateFromContext returns the candidate path if present.
func CandidateFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(candidateKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithStrategy annotates context with the execution strategy name.
func WithStrategy(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, strategyKey, name)
}

// StrategyFromContext returns the strategy name if present.
func StrategyFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(strategyKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
