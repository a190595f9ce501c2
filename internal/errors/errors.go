// Package errors provides standardized error handling for modeltool.
// It defines the error kinds used across the conversion pipeline, typed
// errors carrying the path, parameter or engine handle involved, and helper
// functions for consistent creation, wrapping and classification.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	InvalidPath
	IoError
	Cancelled
	// Engine error kinds
	ImportFailure
	ExportFailure
	BatchItemFailure
	// Orchestration error kinds
	InvalidOperation
	// Config error kinds
	InvalidConfig
	ConfigNotFound
)

// String returns the kind name used in log fields and status lines.
func (k ErrorKind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case InvalidPath:
		return "InvalidPath"
	case IoError:
		return "IoError"
	case Cancelled:
		return "Cancelled"
	case ImportFailure:
		return "ImportFailure"
	case ExportFailure:
		return "ExportFailure"
	case BatchItemFailure:
		return "BatchItemFailure"
	case InvalidOperation:
		return "InvalidOperation"
	case InvalidConfig:
		return "InvalidConfig"
	case ConfigNotFound:
		return "ConfigNotFound"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Common error constants for frequently occurring errors
var (
	ErrInvalidPath   = NewFileError("invalid file path", "", InvalidPath, nil)
	ErrCancelled     = NewFileError("operation cancelled", "", Cancelled, nil)
	ErrBusy          = NewKindError("another operation is in progress", InvalidOperation, nil)
	ErrNoModel       = NewKindError("no model loaded", InvalidOperation, nil)
	ErrInvalidConfig = NewConfigError("invalid configuration", "", InvalidConfig, nil)
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// NewKindError creates an untyped application error of the given kind.
func NewKindError(msg string, kind ErrorKind, err error) *ApplicationError {
	return &ApplicationError{msg: msg, err: err, kind: kind}
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// Is matches sentinel errors by kind and message so that wrapped copies of
// ErrBusy or ErrCancelled still satisfy errors.Is.
func (e *ApplicationError) Is(target error) bool {
	var t interface {
		Kind() ErrorKind
		Error() string
	}
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind() == e.kind && t.Error() == e.msg
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Is compares by kind only, so any cancelled or invalid-path error matches
// the package sentinels regardless of the path it carries.
func (e *FileError) Is(target error) bool {
	var fe *FileError
	if errors.As(target, &fe) && fe.path == "" {
		return fe.kind == e.kind
	}
	return false
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// EngineError represents a failure reported by the conversion engine.
type EngineError struct {
	ApplicationError
	handle int
}

// NewEngineError creates a new engine error. Pass a negative handle when the
// failure happened before a handle existed.
func NewEngineError(msg string, handle int, kind ErrorKind, err error) *EngineError {
	return &EngineError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		handle: handle,
	}
}

// Error returns the engine error message
func (e *EngineError) Error() string {
	if e.handle >= 0 {
		if e.err != nil {
			return fmt.Sprintf("%s: handle=%d: %v", e.msg, e.handle, e.err)
		}
		return fmt.Sprintf("%s: handle=%d", e.msg, e.handle)
	}
	return e.ApplicationError.Error()
}

// Handle returns the engine handle associated with the error, or -1.
func (e *EngineError) Handle() int {
	return e.handle
}

// BatchError records the failure of one file inside a batch conversion.
type BatchError struct {
	ApplicationError
	path  string
	index int
}

// NewBatchError creates a batch item failure for the file at index in the
// batch. The cause is kept as the wrapped error.
func NewBatchError(path string, index int, err error) *BatchError {
	return &BatchError{
		ApplicationError: ApplicationError{
			msg:  "batch item failed",
			err:  err,
			kind: BatchItemFailure,
		},
		path:  path,
		index: index,
	}
}

// Error returns the batch error message
func (e *BatchError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: #%d %s: %v", e.msg, e.index, e.path, e.err)
	}
	return fmt.Sprintf("%s: #%d %s", e.msg, e.index, e.path)
}

// Path returns the file that failed
func (e *BatchError) Path() string {
	return e.path
}

// Index returns the position of the file in the batch
func (e *BatchError) Index() int {
	return e.index
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first classified error in err's chain.
// Unknown wrappers are skipped so a Wrap around a Cancelled error still
// reports Cancelled.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsInvalidPath checks if the error is an invalid path error
func IsInvalidPath(err error) bool {
	return IsKind(err, InvalidPath)
}

// IsCancelled checks if the error is a cooperative cancellation
func IsCancelled(err error) bool {
	return IsKind(err, Cancelled)
}

// IsBusy checks if the error is a rejected re-entrant operation
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}
