package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WritesErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()

	BadRequest(rec, "File too large (max 10MB)")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"File too large (max 10MB)"}`, rec.Body.String())
}

func TestOK_WritesPayloadAsIs(t *testing.T) {
	rec := httptest.NewRecorder()

	OK(rec, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		write func(http.ResponseWriter)
		code  int
	}{
		{func(w http.ResponseWriter) { Unauthorized(w, "x") }, http.StatusUnauthorized},
		{func(w http.ResponseWriter) { Forbidden(w, "x") }, http.StatusForbidden},
		{func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
		{func(w http.ResponseWriter) { InternalError(w, "x") }, http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		c.write(rec)
		assert.Equal(t, c.code, rec.Code)
		assert.JSONEq(t, `{"error":"x"}`, rec.Body.String())
	}
}
