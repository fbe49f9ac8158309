package media

import (
	"fmt"
	"strings"
)

// ValidationError rejects an upload before any store or filesystem mutation.
// Field names the first failing check so the form can be re-rendered with
// the submitted values preserved.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TranscodeKind distinguishes a broken deployment from a bad input file.
type TranscodeKind string

const (
	// TranscodeUnavailable means the transcoder executable could not be
	// invoked at all (missing binary, misconfiguration).
	TranscodeUnavailable TranscodeKind = "unavailable"
	// TranscodeFailed means the transcoder ran but rejected or crashed on
	// the input.
	TranscodeFailed TranscodeKind = "failed"
)

// TranscodeError reports a transcoding failure after the pipeline has rolled
// back. The original transcoder output is preserved for the operator alert.
type TranscodeError struct {
	Kind   TranscodeKind
	Output string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s: %v", e.Kind, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// unavailableSignatures are matched case-insensitively against the failure
// text to detect an uninvokable executable, e.g. Go's
// "executable file not found in $PATH" or Windows'
// "not recognized as an internal or external command".
var unavailableSignatures = []string{
	"executable file not found",
	"not recognized as an internal",
	"cannot find the file specified",
	"no such file or directory: ffmpeg",
}

// classifyTranscode wraps a transcoder failure in a TranscodeError, choosing
// the kind from the failure text.
func classifyTranscode(err error) *TranscodeError {
	msg := strings.ToLower(err.Error())
	kind := TranscodeFailed
	for _, sig := range unavailableSignatures {
		if strings.Contains(msg, sig) {
			kind = TranscodeUnavailable
			break
		}
	}
	return &TranscodeError{Kind: kind, Output: err.Error(), Err: err}
}
