package uhdrgen

import "github.com/pkg/errors"

// Error kinds. All of them abort a conversion, nothing is written on failure.
var (
	ErrMissingInput      = errors.New("uhdrgen: missing input")
	ErrDimensionMismatch = errors.New("uhdrgen: HDR and SDR dimensions differ")
	ErrEncodingFailure   = errors.New("uhdrgen: JPEG encoding failed")
	ErrLayoutMismatch    = errors.New("uhdrgen: container layout does not match its plan")

	// ErrDegenerateBoost names a zero or negative log range. It is never returned:
	// NewGainMapParameters floors the boost at 1.0001.
	ErrDegenerateBoost = errors.New("uhdrgen: degenerate content boost")
)

// Stage names a step of the conversion pipeline.
type Stage string

// Pipeline stages reported by StageError.
const (
	StageDecode   Stage = "decode"
	StageToneMap  Stage = "tone map"
	StageGainMap  Stage = "gain-map compute"
	StageEncode   Stage = "encode"
	StageAssemble Stage = "assemble"
	StageWrite    Stage = "write"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

// Unwrap gives errors.Is access to the underlying kind.
func (e *StageError) Unwrap() error { return e.Err }

// Cause implements the pkg/errors causer interface.
func (e *StageError) Cause() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
