package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	original := NewDomainError(CodeConflict, "already there", http.StatusConflict, nil)

	mapped := ToDomainError(original)
	assert.Same(t, original, mapped)

	wrapped := fmt.Errorf("while saving: %w", original)
	mapped = ToDomainError(wrapped)
	assert.Same(t, original, mapped)
}

func TestToDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"missing row", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"wrapped missing row", fmt.Errorf("lookup: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, CodeConflict, http.StatusConflict},
		{"other pg error", &pgconn.PgError{Code: "57014"}, CodeInternalError, http.StatusInternalServerError},
		{"opaque error", errors.New("dial tcp: refused"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := ToDomainError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.wantCode, mapped.Code)
			assert.Equal(t, tt.wantStatus, mapped.HTTPStatus)
		})
	}
}

// Internal failures keep their cause for the logs but expose a generic
// message; infrastructure details must not reach a client.
func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("pg: password authentication failed for user app")

	mapped := ToDomainError(cause)
	assert.Equal(t, "internal server error", mapped.Message)
	assert.ErrorIs(t, mapped, cause)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), CodeValidationFailed, http.StatusBadRequest},
		{"not found", NewNotFound("subject", nil), CodeNotFound, http.StatusNotFound},
		{"invalid credentials", NewInvalidCredentials(), CodeInvalidCredentials, http.StatusUnauthorized},
		{"unauthenticated", NewUnauthenticated("log in first"), CodeUnauthenticated, http.StatusUnauthorized},
		{"forbidden", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"conflict", NewConflict("taken", nil), CodeConflict, http.StatusConflict},
		{"too many requests", NewTooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var domainErr *DomainError
			require.ErrorAs(t, tt.err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
			assert.Equal(t, tt.wantStatus, domainErr.HTTPStatus)
		})
	}
}

func TestNotFoundMessageNamesResource(t *testing.T) {
	var domainErr *DomainError
	require.ErrorAs(t, NewNotFound("subject", nil), &domainErr)
	assert.Equal(t, "subject not found", domainErr.Message)
}
