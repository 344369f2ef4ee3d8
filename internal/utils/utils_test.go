package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	t.Run("SetUserContext and getters", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), 100, "farmer@example.com", RoleFarmer)

		id, ok := GetUserIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, uint(100), id)
		assert.Equal(t, "farmer@example.com", GetUserEmailFromContext(ctx))
		assert.Equal(t, RoleFarmer, GetUserRoleFromContext(ctx))
	})

	t.Run("empty context", func(t *testing.T) {
		_, ok := GetUserIDFromContext(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "", GetUserRoleFromContext(context.Background()))
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    uint
		wantErr bool
	}{
		{"42", 42, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONError(w, "invalid_code", "delivery code does not match", http.StatusUnprocessableEntity)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_code", body["error"].Kind)
	assert.Equal(t, "delivery code does not match", body["error"].Message)
}

func TestGenerateNumericCode(t *testing.T) {
	t.Run("four digits", func(t *testing.T) {
		re := regexp.MustCompile(`^\d{4}$`)
		for i := 0; i < 200; i++ {
			code, err := GenerateNumericCode(4)
			require.NoError(t, err)
			assert.Regexp(t, re, code)
		}
	})

	t.Run("six digits", func(t *testing.T) {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := GenerateNumericCode(0)
		assert.Error(t, err)
	})
}
