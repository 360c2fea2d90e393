package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/logging"
	"modular-shop-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.raw)
			rec := httptest.NewRecorder()

			id, ok := parseID(rec, r, "id")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, utils.CodeBadRequest, errorCode(t, rec))
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name string
		body string
		ok   bool
		code string
	}{
		{"valid", `{"name":"x","count":2}`, true, ""},
		{"empty", ``, false, utils.CodeBadRequest},
		{"syntax", `{"name" "x"}`, false, utils.CodeBadRequest},
		{"type mismatch", `{"count":"two"}`, false, utils.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var p payload
			ok := decodeBody(rec, r, &p)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestDecodeBody_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", 64) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.Body = http.MaxBytesReader(rec, r.Body, 16)

	var v map[string]string
	assert.False(t, decodeBody(rec, r, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{database.ErrNotFound, http.StatusNotFound, utils.CodeNotFound},
		{fmt.Errorf("product 7: %w", database.ErrNotFound), http.StatusNotFound, utils.CodeNotFound},
		{database.ErrDuplicate, http.StatusBadRequest, utils.CodeValidation},
		{database.ErrAlreadyMember, http.StatusBadRequest, utils.CodeValidation},
		{database.ErrNotMember, http.StatusNotFound, utils.CodeNotFound},
		{database.ErrInvalidReference, http.StatusUnprocessableEntity, utils.CodeReference},
		{database.ErrInUse, http.StatusConflict, utils.CodeConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError, utils.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeStoreError(rec, logging.Discard(), tt.err, "product")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestWriteStoreError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, logging.Discard(), errors.New("pq: password authentication failed"), "user")
	assert.NotContains(t, rec.Body.String(), "password authentication")
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("a@b.c"))
	assert.True(t, validEmail("first.last@example.com"))
	assert.False(t, validEmail("no-at-sign"))
	assert.False(t, validEmail("@example.com"))
	assert.False(t, validEmail("user@"))
	assert.False(t, validEmail("us er@example.com"))
}

func TestTrimmed(t *testing.T) {
	assert.Nil(t, trimmed(nil))
	s := "  padded "
	assert.Equal(t, "padded", *trimmed(&s))
}
