// Package failure classifies the ways an easy-git operation can fail.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind string

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = "unknown"
	// KindLaunch means an external process could not be started.
	KindLaunch Kind = "launch_failure"
	// KindCommand means a process ran and exited unsuccessfully.
	KindCommand Kind = "command_failure"
	// KindNetwork covers bind, connect and send failures.
	KindNetwork Kind = "network_failure"
	// KindProtocol covers malformed callbacks, state mismatches and bad token responses.
	KindProtocol Kind = "protocol_failure"
	// KindConfiguration means required credentials or settings are missing.
	KindConfiguration Kind = "configuration_failure"
	// KindFilesystem means a scratch directory could not be prepared.
	KindFilesystem Kind = "filesystem_failure"
)

// Error is a classified failure. Msg is the human readable text surfaced to
// the caller; Err, when set, is the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns a failure of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The message may be empty, in which case the cause's
// text is used verbatim.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
