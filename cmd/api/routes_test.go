package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screensnap/service/internal/auth"
	"github.com/screensnap/service/internal/screenshot"
	"github.com/screensnap/service/internal/shortid"
	"github.com/screensnap/service/internal/storage"
)

func newLocalRouter(t *testing.T) http.Handler {
	t.Helper()
	records, err := screenshot.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	blobs, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080"+storage.LocalPublicPath)
	require.NoError(t, err)

	svc := screenshot.NewService(records, blobs, shortid.New(10), screenshot.NewPolicy(), screenshot.Options{
		MaxBytes:   screenshot.DefaultMaxBytes,
		Thumbnails: true,
	})
	return newRouter(routerDeps{
		shots:      screenshot.NewHandler(svc, blobs, screenshot.DefaultMaxBytes),
		sessions:   auth.NewSessions("secret", time.Hour),
		serveFiles: true,
	})
}

func TestRouter_Health(t *testing.T) {
	r := newLocalRouter(t)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_UploadShareAndServe(t *testing.T) {
	r := newLocalRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="shot.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{1}, 2000))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var up struct {
		ID        string `json:"id"`
		URL       string `json:"url"`
		SharePath string `json:"sharePath"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&up))
	assert.Equal(t, "http://localhost:8080/files/"+up.ID+".png", up.URL)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, up.SharePath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(up.URL, "http://localhost:8080"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000, rec.Body.Len())
}

func TestRouter_CallbackWithoutProviderRedirectsHome(t *testing.T) {
	r := newLocalRouter(t)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=x", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRouter_GalleryNeedsSession(t *testing.T) {
	r := newLocalRouter(t)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gallery", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
