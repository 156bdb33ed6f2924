package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":"abc"}}`, rec.Body.String())
}

func TestFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FieldErrors(rec, http.StatusUnprocessableEntity, "Validation failed", map[string][]string{"email": {"Email is required"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, []string{"Email is required"}, body.Errors["email"])
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "x", dst.Name)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"nmae":"x"}`))
	assert.Error(t, Decode(req, &dst))
}
