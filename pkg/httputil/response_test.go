package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
	"github.com/curatedcode/toshi-sub000/pkg/logger"
	"github.com/curatedcode/toshi-sub000/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteJSON_ErrorPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID", Message: "bad input"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID", resp.Error.Code)
	assert.Equal(t, "bad input", resp.Error.Message)
}

func TestWriteJSON_StatusCodes(t *testing.T) {
	codes := []int{http.StatusOK, http.StatusCreated, http.StatusNotFound, http.StatusTeapot}
	for _, code := range codes {
		rec := httptest.NewRecorder()
		WriteJSON(rec, code, Response{})
		assert.Equal(t, code, rec.Code)
	}
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	appErr := apperrors.NotFound("product", "abc-123")
	WriteError(rec, req, appErr, testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWriteError_AppError_OutOfStock(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	WriteError(rec, req, apperrors.OutOfStock("prod-1"), testLogger())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "OUT_OF_STOCK", resp.Error.Code)
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWriteError_SentinelAlreadyExists(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	WriteError(rec, req, apperrors.ErrAlreadyExists, testLogger())

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

func TestWriteError_WrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	wrapped := fmt.Errorf("save cart: %w", apperrors.ErrInvalidInput)
	WriteError(rec, req, wrapped, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestWriteError_UnknownError_Returns500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, fmt.Errorf("something unexpected"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	// Internal details never leak to the client.
	assert.NotContains(t, resp.Error.Message, "something unexpected")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithRequestID(context.Background(), "req-123")
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestWriteError_NoRequestID_OmitsField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	var raw map[string]json.RawMessage
	err := json.NewDecoder(rec.Body).Decode(&raw)
	require.NoError(t, err)

	var errObj map[string]json.RawMessage
	err = json.Unmarshal(raw["error"], &errObj)
	require.NoError(t, err)
	_, hasRequestID := errObj["request_id"]
	assert.False(t, hasRequestID, "request_id should be omitted when not in context")
}

// --- WriteValidationError ---

func TestWriteValidationError_FieldErrors(t *testing.T) {
	input := struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}{Email: "not-an-email"}

	err := validator.Validate(input)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Email")
	assert.Contains(t, resp.Error.Fields, "Name")
}

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("not a validation error"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// --- Response struct ---

func TestResponse_NilError_OmitsErrorField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "ok"})

	var raw map[string]json.RawMessage
	err := json.NewDecoder(rec.Body).Decode(&raw)
	require.NoError(t, err)
	_, hasError := raw["error"]
	assert.False(t, hasError, "error field should be omitted when nil")
}

func TestResponse_NilData_OmitsDataField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "ERR", Message: "msg"},
	})

	var raw map[string]json.RawMessage
	err := json.NewDecoder(rec.Body).Decode(&raw)
	require.NoError(t, err)
	_, hasData := raw["data"]
	assert.False(t, hasData, "data field should be omitted when nil")
}

// --- PaginatedResponse ---

func TestNewPaginatedResponse_ComputesTotalPages(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 25, 1, 12)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.Equal(t, 2, len(resp.Data))
}

func TestNewPaginatedResponse_LastPage(t *testing.T) {
	resp := NewPaginatedResponse([]string{"x"}, 25, 3, 12)
	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
}

func TestNewPaginatedResponse_ExactDivision(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2, 3}, 36, 2, 12)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
}

func TestNewPaginatedResponse_NilDataBecomesEmptySlice(t *testing.T) {
	resp := NewPaginatedResponse[string](nil, 0, 1, 12)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 0, len(resp.Data))
	assert.Equal(t, 0, resp.TotalPages)
	assert.False(t, resp.HasNext)
}

func TestNewPaginatedResponse_JSONSerialization(t *testing.T) {
	resp := NewPaginatedResponse([]string{"hello"}, 1, 1, 12)
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, resp)

	var out map[string]json.RawMessage
	err := json.NewDecoder(rec.Body).Decode(&out)
	require.NoError(t, err)

	assert.Contains(t, string(out["data"]), "hello")
	assert.Contains(t, string(out["total_count"]), "1")
	assert.Contains(t, string(out["page"]), "1")
	assert.Contains(t, string(out["per_page"]), "12")
}

// --- ParseUUID ---

func TestParseUUID_ValidUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
	assert.Equal(t, http.StatusOK, rec.Code) // no response written
}

func TestParseUUID_InvalidUUID_Returns400(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", id.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not-a-uuid")
}

func TestParseUUID_EmptyString_Returns400(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseUUID_UppercaseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
}
