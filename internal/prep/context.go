package prep

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	stageKey     contextKey = "stage"
	partitionKey contextKey = "partition"
	jobKey       contextKey = "job"
)

// WithRunID annotates context with the run correlation identifier.
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

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPartition annotates context with the partition being processed.
func WithPartition(ctx context.Context, partition string) context.Context {
	if partition == "" {
		return ctx
	}
	return context.WithValue(ctx, partitionKey, partition)
}

// PartitionFromContext returns the partition name if present.
func PartitionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(partitionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJob annotates context with the extraction job index.
func WithJob(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, jobKey, index)
}

// JobFromContext returns the extraction job index if present.
func JobFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(jobKey).(int)
	return v, ok
}
