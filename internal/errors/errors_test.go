package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrNotFound", ErrNotFound, true},
		{"ErrBusinessNotFound", ErrBusinessNotFound, true},
		{"ErrConversationNotFound", ErrConversationNotFound, true},
		{"ErrMessageNotFound", ErrMessageNotFound, true},
		{"ErrAttachmentNotFound", ErrAttachmentNotFound, true},
		{"ErrSubmissionNotFound", ErrSubmissionNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("context: %w", ErrNotFound), true},
		{"other error", errors.New("something else"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFound(tt.err))
		})
	}
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(ErrInvalidInput))
	assert.True(t, IsInvalidInput(ErrParseRequired))
	assert.True(t, IsInvalidInput(ErrInvalidOverride))
	assert.False(t, IsInvalidInput(ErrSubmissionFailed))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"not found", ErrAttachmentNotFound, CodeNotFound},
		{"parse required", ErrParseRequired, CodeParseRequired},
		{"invalid override", ErrInvalidOverride, CodeInvalidOverride},
		{"duplicate", ErrDuplicateEntry, CodeDuplicateEntry},
		{"invalid input", ErrInvalidInput, CodeInvalidInput},
		{"business not active", ErrBusinessNotActive, CodeBusinessNotActive},
		{"unauthorized", ErrUnauthorized, CodeUnauthorized},
		{"conversion", ErrConversionFailed, CodeConversionFailed},
		{"extraction", ErrExtractionFailed, CodeExtractionFailed},
		{"submission", ErrSubmissionFailed, CodeSubmissionFailed},
		{"transition", ErrInvalidTransition, CodeInvalidTransition},
		{"unknown", errors.New("boom"), CodeInternalError},
		{"wrapped submission", fmt.Errorf("send: %w", ErrSubmissionFailed), CodeSubmissionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	base := errors.New("underlying")
	appErr := NewAppError(base, "friendly message", CodeInternalError)

	assert.Equal(t, "friendly message", appErr.Error())
	assert.Equal(t, base, errors.Unwrap(appErr))

	noMessage := NewAppError(base, "", CodeInternalError)
	assert.Equal(t, "underlying", noMessage.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	wrapped := Wrap(ErrParseRequired, "submit")
	assert.True(t, errors.Is(wrapped, ErrParseRequired))
	assert.Contains(t, wrapped.Error(), "submit")
}
