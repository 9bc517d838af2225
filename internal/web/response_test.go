package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", domain.NotFound("Order not found"), http.StatusNotFound, `{"message":"Order not found"}`},
		{"validation", domain.Validation("No order items"), http.StatusBadRequest, `{"message":"No order items"}`},
		{"conflict is a bad request", domain.Conflict("User already exists"), http.StatusBadRequest, `{"message":"User already exists"}`},
		{"invalid state is a bad request", domain.InvalidState("Order is already cancelled"), http.StatusBadRequest, `{"message":"Order is already cancelled"}`},
		{"unauthenticated", domain.Unauthorized("Not authorized, no token"), http.StatusUnauthorized, `{"message":"Not authorized, no token"}`},
		{"forbidden", domain.Forbidden("Not authorized as an admin"), http.StatusForbidden, `{"message":"Not authorized as an admin"}`},
		{"wrapped domain error keeps its kind", fmt.Errorf("cancel order: %w", domain.NotFound("Order not found")), http.StatusNotFound, `{"message":"cancel order: Order not found"}`},
		{"internal errors surface their message", errors.New("connection refused"), http.StatusInternalServerError, `{"message":"connection refused"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
			rec := httptest.NewRecorder()

			WriteError(rec, req, logger, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Reason string `json:"reason"`
	}

	t.Run("decodes a body", func(t *testing.T) {
		var p payload
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":"late"}`))
		require.NoError(t, DecodeJSON(req, &p))
		assert.Equal(t, "late", p.Reason)
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		var p payload
		req := httptest.NewRequest(http.MethodPut, "/", http.NoBody)
		require.NoError(t, DecodeJSON(req, &p))
		assert.Empty(t, p.Reason)
	})

	t.Run("malformed json is a validation error", func(t *testing.T) {
		var p payload
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":`))
		err := DecodeJSON(req, &p)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthHandler(logger, map[string]Check{"postgres": ok, "mongo": ok})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok","mongo":"ok"}}`, rec.Body.String())
	})

	t.Run("one failing check is a 503", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthHandler(logger, map[string]Check{"postgres": ok, "mongo": down})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"ok","mongo":"connection refused"}}`, rec.Body.String())
	})
}
