package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "gctidash/internal/errors"
)

type pageRequest struct {
	Page string `json:"page" validate:"required,oneof=home tmti compliance impact"`
}

func TestValidator_DecodeJSON(t *testing.T) {
	v := NewValidator(quietLogger())

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{name: "valid", body: `{"page":"tmti"}`},
		{name: "missing field", body: `{}`, wantErr: true, wantField: "page"},
		{name: "not in enum", body: `{"page":"reports"}`, wantErr: true, wantField: "page"},
		{name: "malformed json", body: `{"page":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst pageRequest
			err := v.DecodeJSON(req, &dst)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "tmti", dst.Page)
				return
			}

			require.Error(t, err)
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			if tt.wantField != "" {
				details, ok := apiErr.Details.(apierrors.ValidationErrors)
				require.True(t, ok)
				require.Len(t, details.Errors, 1)
				assert.Equal(t, tt.wantField, details.Errors[0].Field)
			}
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	eh := apierrors.NewErrorHandler(quietLogger(), false)
	qv := NewQueryParamValidator(eh)

	t.Run("int default", func(t *testing.T) {
		w := httptest.NewRecorder()
		n, ok := qv.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/", nil), "limit", 0, 10, 5)
		assert.True(t, ok)
		assert.Equal(t, 5, n)
	})

	t.Run("int out of range", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := qv.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?limit=11", nil), "limit", 0, 10, 5)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, apierrors.TypeValidation, body["type"])
	})

	t.Run("int not a number", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := qv.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), "limit", 0, 10, 5)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("uint64", func(t *testing.T) {
		w := httptest.NewRecorder()
		u, ok := qv.ValidateUint64(w, httptest.NewRequest(http.MethodGet, "/?seed=18446744073709551615", nil), "seed", 42)
		assert.True(t, ok)
		assert.Equal(t, uint64(18446744073709551615), u)

		w = httptest.NewRecorder()
		_, ok = qv.ValidateUint64(w, httptest.NewRequest(http.MethodGet, "/?seed=-1", nil), "seed", 42)
		assert.False(t, ok)
	})

	t.Run("enum is case-insensitive", func(t *testing.T) {
		w := httptest.NewRecorder()
		f, ok := qv.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?format=XLSX", nil), "format", []string{"csv", "xlsx"}, "csv")
		assert.True(t, ok)
		assert.Equal(t, "xlsx", f)
	})
}
