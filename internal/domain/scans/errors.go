package scans

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage indicates the upload could not be decoded into a usable raster.
	ErrInvalidImage = errors.New("invalid image")
	// ErrDimensionMismatch is an internal invariant violation inside the overlay.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrModelUnavailable indicates trained classifier weights could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrNotFound is returned by Repository.Get for unknown ids.
	ErrNotFound = errors.New("record not found")
)

// Stage pipeline
type Stage string

const (
	StageReceived   Stage = "received"
	StageDecoded    Stage = "decoded"
	StageClassified Stage = "classified"
	StageHistory    Stage = "history"
	StageAdvised    Stage = "advised"
	StagePersisted  Stage = "persisted"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// PipelineError is the uniform failure surfaced by the analysis pipeline.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
