package analysis

import (
	"errors"
	"fmt"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/prosody"
	"github.com/lexiqai/echo-speech/internal/stt"
)

// ErrorKind is the error_name reported in a Failure.
type ErrorKind string

const (
	SilenceRemovalFailure       ErrorKind = "Cannot Remove Silent Intervals"
	TranscriptionUnavailable    ErrorKind = "RequestError"
	TranscriptionUnrecognizable ErrorKind = "UnknownValueError"
	InvalidSpeechTime           ErrorKind = "Invalid Total Speech Time"
	AudioLoadFailure            ErrorKind = "Cannot Load Audio"
	FileNotFound                ErrorKind = "File Not Found"
	NotAFile                    ErrorKind = "Not A File"
	FileNotSupported            ErrorKind = "File Not Supported"
	InternalError               ErrorKind = "InternalError"
)

const silenceRemovalDetails = "An unknown error occured while removing silent intervals from audio frame."

// Error is an analysis failure with its reported kind.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Details returns the text reported as error_details.
func (e *Error) Details() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "No details."
	}
}

// Errorf creates an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Classify maps err onto an *Error. Errors from the transcription, audio and
// prosody packages get their specific kind; anything else is InternalError.
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, prosody.ErrEmptySignal):
		return &Error{Kind: SilenceRemovalFailure, Detail: silenceRemovalDetails, Err: err}
	case errors.Is(err, stt.ErrUnrecognizable):
		return &Error{Kind: TranscriptionUnrecognizable, Err: err}
	case errors.Is(err, stt.ErrUnavailable):
		return &Error{Kind: TranscriptionUnavailable, Err: err}
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return &Error{Kind: AudioLoadFailure, Err: err}
	default:
		return &Error{Kind: InternalError, Err: err}
	}
}
