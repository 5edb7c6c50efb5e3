package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/rhi/hal"
)

// Sentinel errors re-exported from HAL.
var (
	ErrDeviceLost      = hal.ErrDeviceLost
	ErrOutOfMemory     = hal.ErrDeviceOutOfMemory
	ErrSurfaceLost     = hal.ErrSurfaceLost
	ErrSurfaceOutdated = hal.ErrSurfaceOutdated
	ErrTimeout         = hal.ErrTimeout
)

// Public API sentinel errors.
var (
	// ErrReleased is returned when operating on a released resource.
	ErrReleased = errors.New("wgpu: resource already released")

	// ErrNoAdapters is returned when no GPU adapters are found.
	ErrNoAdapters = errors.New("wgpu: no GPU adapters available")

	// ErrNoBackends is returned when no backends are registered (import
	// a backend package, or hal/noop for testing).
	ErrNoBackends = errors.New("wgpu: no backends registered")
)

// ValidationError reports a violation of a resource descriptor's contract
// (malformed input, a size or offset out of bounds, a missing feature).
// Callers that want to distinguish validation failures from other errors
// should use errors.As against *ValidationError.
type ValidationError struct {
	Resource string // resource type, e.g. "Buffer"
	Field    string // field that failed, if applicable
	Message  string
	Cause    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("wgpu: %s.%s: %s", e.Resource, e.Field, e.Message)
	}
	return fmt.Sprintf("wgpu: %s: %s", e.Resource, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func newValidationError(resource, field, message string) *ValidationError {
	return &ValidationError{Resource: resource, Field: field, Message: message}
}

func newValidationErrorf(resource, field, format string, args ...any) *ValidationError {
	return &ValidationError{Resource: resource, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StateError reports an operation attempted in a state that forbids it:
// recording into a finished CommandEncoder, ending an already-ended pass,
// submitting a command buffer twice.
type StateError struct {
	Object    string // e.g. "CommandEncoder", "RenderPassEncoder"
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("wgpu: cannot %s: %s is %s", e.Operation, e.Object, e.State)
}

func newStateError(object, operation, state string) *StateError {
	return &StateError{Object: object, Operation: operation, State: state}
}

// IsStateError reports whether err is (or wraps) a *StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// LimitError reports a request that exceeds a device or adapter limit.
type LimitError struct {
	Resource string
	Limit    string
	Actual   uint64
	Maximum  uint64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("wgpu: %s: %s exceeded (got %d, max %d)", e.Resource, e.Limit, e.Actual, e.Maximum)
}

func newLimitError(resource, limit string, actual, maximum uint64) *LimitError {
	return &LimitError{Resource: resource, Limit: limit, Actual: actual, Maximum: maximum}
}

// IsLimitError reports whether err is (or wraps) a *LimitError.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// FeatureError reports a request that requires a feature the device was
// not opened with.
type FeatureError struct {
	Resource string
	Feature  string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("wgpu: %s: requires feature %q which is not enabled", e.Resource, e.Feature)
}

func newFeatureError(resource, feature string) *FeatureError {
	return &FeatureError{Resource: resource, Feature: feature}
}

// IsFeatureError reports whether err is (or wraps) a *FeatureError.
func IsFeatureError(err error) bool {
	var fe *FeatureError
	return errors.As(err, &fe)
}

// ErrorFilter selects which class of GPU error an error scope captures,
// per the WebGPU error-scope model.
type ErrorFilter int

const (
	ErrorFilterValidation ErrorFilter = iota
	ErrorFilterOutOfMemory
	ErrorFilterInternal
)

func (f ErrorFilter) String() string {
	switch f {
	case ErrorFilterValidation:
		return "Validation"
	case ErrorFilterOutOfMemory:
		return "OutOfMemory"
	case ErrorFilterInternal:
		return "Internal"
	default:
		return fmt.Sprintf("ErrorFilter(%d)", int(f))
	}
}

// GPUError is a captured GPU error, returned by Device.PopErrorScope.
type GPUError struct {
	Type    ErrorFilter
	Message string
}

func (e *GPUError) Error() string {
	return fmt.Sprintf("wgpu: GPU %s error: %s", e.Type, e.Message)
}

// errorScope is one entry of a device's error-scope stack. Scopes are
// LIFO; each captures only the first error matching its filter.
type errorScope struct {
	filter ErrorFilter
	err    *GPUError
}

// errorScopeStack manages a device's error-scope stack.
type errorScopeStack struct {
	mu     sync.Mutex
	scopes []errorScope
}

func (s *errorScopeStack) push(filter ErrorFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes = append(s.scopes, errorScope{filter: filter})
}

func (s *errorScopeStack) pop() (*GPUError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scopes) == 0 {
		return nil, errors.New("wgpu: error scope stack is empty: no matching PushErrorScope")
	}
	last := len(s.scopes) - 1
	scope := s.scopes[last]
	s.scopes = s.scopes[:last]
	return scope.err, nil
}

// report delivers an error to the topmost scope whose filter matches,
// capturing only the first such error per scope. Returns false if no
// scope matched (the error is "uncaptured").
func (s *errorScopeStack) report(filter ErrorFilter, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].filter == filter {
			if s.scopes[i].err == nil {
				s.scopes[i].err = &GPUError{Type: filter, Message: message}
			}
			return true
		}
	}
	return false
}
