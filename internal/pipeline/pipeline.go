// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
)

// Job is one refinement pipeline run by the CLI
type Job interface {
	// Name returns the job name (e.g., "normalize", "aggregate")
	Name() string

	// Run executes the job from input to output
	Run(ctx context.Context) error
}

// Stage names a step of a pipeline
type Stage string

const (
	StageLoad    Stage = "load"
	StageGroup   Stage = "group"
	StageSave    Stage = "save"
	StagePublish Stage = "publish"
)

// Prefix returns the console label reported for failures in the stage
func (s Stage) Prefix() string {
	switch s {
	case StageLoad:
		return "Error loading CSV"
	case StageGroup:
		return "Error during grouping"
	case StageSave:
		return "Error saving CSV"
	case StagePublish:
		return "Error publishing results"
	default:
		return fmt.Sprintf("Error at %s stage", string(s))
	}
}

// StageError represents a pipeline failure at a specific stage
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.Prefix(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}
