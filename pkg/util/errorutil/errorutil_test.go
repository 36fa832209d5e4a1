package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughWrappedDomainErrors(t *testing.T) {
	base := NewValidationError("bad hours", map[string]any{"field": "p0_hours"})
	wrapped := fmt.Errorf("upsert: %w", base)

	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "VALIDATION_FAILED", got.Code)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus)
	assert.Equal(t, "p0_hours", got.Details["field"])
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	got := ToDomainError(fmt.Errorf("get ticket: %w", pgx.ErrNoRows))
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
}

func TestToDomainErrorMapsFiberErrors(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
	assert.Equal(t, "FORBIDDEN", got.Code)
	assert.Equal(t, "insufficient role", got.Message)
	assert.Equal(t, http.StatusForbidden, got.HTTPStatus)

	got = ToDomainError(fiber.ErrMethodNotAllowed)
	assert.Equal(t, "METHOD_NOT_ALLOWED", got.Code)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	cause := errors.New("connection reset")
	got := ToDomainError(cause)
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.ErrorIs(t, got, cause)
}

func TestInvalidTicketKeepsCause(t *testing.T) {
	cause := errors.New("missing created_at")
	err := NewInvalidTicket(cause, map[string]any{"ticket_id": "t-1"})

	got := ToDomainError(err)
	assert.Equal(t, "INVALID_TICKET", got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.HTTPStatus)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ToDomainError(nil))
}
