package media

import (
	"errors"
	"fmt"
)

// Stage names the step of a single-file conversion that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageDecode   Stage = "decode"
	StageEncode   Stage = "encode"
	StageCommit   Stage = "commit"
	StageTrash    Stage = "trash"
)

// StageError attributes a conversion failure to the step that produced it.
// Decode and encode failures leave the source untouched; a trash failure
// happens after the output was committed.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DecodeError wraps err as a decode-stage failure for path.
func DecodeError(path string, err error) error {
	return &StageError{Stage: StageDecode, Path: path, Err: err}
}

// EncodeError wraps err as an encode-stage failure for path.
func EncodeError(path string, err error) error {
	return &StageError{Stage: StageEncode, Path: path, Err: err}
}

// CommitError wraps err as a failure to move the finished output into place.
func CommitError(path string, err error) error {
	return &StageError{Stage: StageCommit, Path: path, Err: err}
}

// TrashError wraps err as a failure to move the source to the trash.
func TrashError(path string, err error) error {
	return &StageError{Stage: StageTrash, Path: path, Err: err}
}

// StageOf returns the stage recorded in err, or "" if err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
