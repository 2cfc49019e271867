package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeForbidden, "tenant mismatch", nil)

	assert.Equal(t, ErrCodeForbidden, err.Code)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.False(t, err.Retryable)
	assert.Equal(t, "[ERR_402_FORBIDDEN] tenant mismatch", err.Error())
}

func TestNewRetryable(t *testing.T) {
	err := New(ErrCodeEmbeddingUnavailable, "model timed out", nil)

	assert.Equal(t, CategoryCollaborator, err.Category)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeStoreUnavailable, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, cause.Error(), err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStoreUnavailable, nil))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeBadRequest, "missing tenant_id", nil).
		WithDetail("field", "tenant_id")

	assert.Equal(t, "tenant_id", err.Details["field"])
}

func TestIs(t *testing.T) {
	a := New(ErrCodeConflict, "lease held", nil)
	b := New(ErrCodeConflict, "different message, same code", nil)
	c := New(ErrCodeBadRequest, "lease held", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(ErrCodeStoreUnavailable, "persist failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		code string
	}{
		{"Forbidden", Forbidden("nope", nil), ErrCodeForbidden},
		{"Conflict", Conflict("locked", nil), ErrCodeConflict},
		{"BadRequest", BadRequest("bad", nil), ErrCodeBadRequest},
		{"StoreError", StoreError("down", nil), ErrCodeStoreUnavailable},
		{"InternalError", InternalError("oops", nil), ErrCodeInternal},
		{"EmbeddingUnavailable", EmbeddingUnavailable("down", nil), ErrCodeEmbeddingUnavailable},
		{"OCRUnavailable", OCRUnavailable("down", nil), ErrCodeOCRUnavailable},
		{"CaptionUnavailable", CaptionUnavailable("down", nil), ErrCodeCaptionUnavailable},
		{"IndexUnavailable", IndexUnavailable("down", nil), ErrCodeIndexUnavailable},
		{"SearchUnavailable", SearchUnavailable("down", nil), ErrCodeSearchUnavailable},
		{"Timeout", Timeout("slow", nil), ErrCodeTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeTimeout, "slow", nil)))
	assert.False(t, IsRetryable(New(ErrCodeForbidden, "nope", nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "bad index", nil)))
	assert.False(t, IsFatal(New(ErrCodeTimeout, "slow", nil)))
	assert.False(t, IsFatal(nil))
}

func TestGetCodeAndCategory(t *testing.T) {
	err := New(ErrCodeUnsupportedMime, "no thanks", nil)

	assert.Equal(t, ErrCodeUnsupportedMime, GetCode(err))
	assert.Equal(t, CategoryValidation, GetCategory(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestHasCode(t *testing.T) {
	inner := New(ErrCodeEmbeddingUnavailable, "model down", nil)
	outer := New(ErrCodeInternal, "search failed", inner)

	assert.True(t, HasCode(outer, ErrCodeInternal))
	assert.True(t, HasCode(outer, ErrCodeEmbeddingUnavailable))
	assert.False(t, HasCode(outer, ErrCodeForbidden))
	assert.False(t, HasCode(nil, ErrCodeInternal))
}
