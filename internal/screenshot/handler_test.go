package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screensnap/service/internal/auth"
	"github.com/screensnap/service/internal/middleware"
	"github.com/screensnap/service/internal/shortid"
)

type testServer struct {
	router   http.Handler
	records  *DocumentStore
	blobs    *memBlobs
	sessions *auth.Sessions
	clock    *clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	records, err := NewDocumentStore("")
	require.NoError(t, err)
	blobs := newMemBlobs()
	c := newClock()
	svc := NewService(records, blobs, shortid.New(10), &Policy{Now: c.Now}, Options{MaxBytes: DefaultMaxBytes})
	h := NewHandler(svc, blobs, DefaultMaxBytes)
	sessions := auth.NewSessions("test-secret", time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(sessions))
	r.Get("/s/{id}", h.SharePage)
	r.With(middleware.RequireAuth).Get("/gallery", h.Gallery)
	r.Post("/api/upload", h.Upload)
	r.Get("/api/s/{id}", h.PublicView)
	r.Get("/api/expiry-presets", h.Presets)
	r.Route("/api/screenshots/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Patch("/expiry", h.SetExpiry)
		r.Patch("/visibility", h.SetVisibility)
	})
	r.Get("/files/*", h.ServeFile)

	return &testServer{router: r, records: records, blobs: blobs, sessions: sessions, clock: c}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.sessions.Issue(auth.Identity{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	return "Bearer " + tok
}

// multipartUpload builds an upload request carrying a file part of size bytes.
func multipartUpload(t *testing.T, filename, contentType string, size int, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{0xAB}, size))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func TestHandler_UploadAnonymousPNG(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartUpload(t, "shot.png", "image/png", 2000, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[uploadResponse](t, rec.Body)
	assert.Len(t, body.ID, 10)
	assert.True(t, shortid.Valid(body.ID, 10, 12))
	assert.Equal(t, body.ID, body.ShortID)
	assert.Equal(t, "/s/"+body.ID, body.SharePath)
	assert.Equal(t, "/s/"+body.ID, body.ShareURL)
	assert.Equal(t, "http://cdn.test/screenshots/"+body.ID+".png", body.URL)
	assert.NotEmpty(t, body.DeleteToken)
}

func TestHandler_UploadTooLarge(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartUpload(t, "big.jpg", "image/jpeg", 11_000_000, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"File too large (max 10MB)"}`, rec.Body.String())
	assert.Empty(t, s.blobs.keys())
}

func TestHandler_UploadFarBeyondLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartUpload(t, "huge.png", "image/png", 13_000_000, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"File too large (max 10MB)"}`, rec.Body.String())
	assert.Empty(t, s.blobs.keys())
}

func TestHandler_OversizedNonImageIsRejectedByType(t *testing.T) {
	s := newTestServer(t)

	for _, size := range []int{11_000_000, 13_000_000} {
		rec := s.do(multipartUpload(t, "report.pdf", "application/pdf", size, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, size)
		assert.JSONEq(t, `{"error":"Only images allowed"}`, rec.Body.String(), size)
	}
	assert.Empty(t, s.blobs.keys())
}

func TestHandler_UploadFieldsAfterFile(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="shot.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{1}, 300))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("width", "640"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := s.records.GetByID(context.Background(), decode[uploadResponse](t, rec.Body).ID)
	require.NoError(t, err)
	assert.Equal(t, 640, stored.Width)
	assert.Equal(t, int64(300), stored.SizeBytes)
}

func TestHandler_UploadValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartUpload(t, "", "", 0, map[string]string{"width": "10"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file provided"}`, rec.Body.String())

	rec = s.do(multipartUpload(t, "notes.txt", "text/plain", 10, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Only images allowed"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("plain body"))
	rec = s.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file provided"}`, rec.Body.String())

	assert.Empty(t, s.blobs.keys())
}

func TestHandler_UploadStorageFailure(t *testing.T) {
	s := newTestServer(t)
	s.blobs.putErr = fmt.Errorf("bucket offline")

	rec := s.do(multipartUpload(t, "shot.png", "image/png", 100, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Upload failed"}`, rec.Body.String())
}

func TestHandler_UploadUserIDMustMatchSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartUpload(t, "shot.png", "image/png", 100, map[string]string{"user_id": "user-1"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := multipartUpload(t, "shot.png", "image/png", 100, map[string]string{"user_id": "user-2"})
	req.Header.Set("Authorization", s.bearer(t, "user-1"))
	rec = s.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = multipartUpload(t, "shot.png", "image/png", 100, map[string]string{"user_id": "user-1", "width": "1280", "height": "720"})
	req.Header.Set("Authorization", s.bearer(t, "user-1"))
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[uploadResponse](t, rec.Body)
	assert.Empty(t, body.DeleteToken)

	stored, err := s.records.GetByID(context.Background(), body.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.OwnerID)
	assert.Equal(t, 1280, stored.Width)
	assert.Equal(t, 720, stored.Height)
}

func TestHandler_SharePage(t *testing.T) {
	s := newTestServer(t)
	up := decode[uploadResponse](t, s.do(multipartUpload(t, "shot.png", "image/png", 100, nil)).Body)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/s/"+up.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), up.URL)
	assert.Contains(t, rec.Body.String(), "1 views")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/s/unknown123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found or expired")
}

func TestHandler_PublicViewAndExpiry(t *testing.T) {
	s := newTestServer(t)
	req := multipartUpload(t, "shot.png", "image/png", 100, nil)
	req.Header.Set("Authorization", s.bearer(t, "user-1"))
	up := decode[uploadResponse](t, s.do(req).Body)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/s/"+up.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[Record](t, rec.Body)
	assert.Equal(t, int64(1), view.ViewCount)
	assert.Equal(t, "user-1", view.OwnerID)

	patch := httptest.NewRequest(http.MethodPatch, "/api/screenshots/"+up.ID+"/expiry", strings.NewReader(`{"ttlHours": 24}`))
	patch.Header.Set("Authorization", s.bearer(t, "user-1"))
	rec = s.do(patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[Record](t, rec.Body).ExpiresAt)

	s.clock.Advance(25 * time.Hour)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/s/"+up.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"screenshot not found"}`, rec.Body.String())

	// the owner still reaches it
	get := httptest.NewRequest(http.MethodGet, "/api/screenshots/"+up.ID, nil)
	get.Header.Set("Authorization", s.bearer(t, "user-1"))
	assert.Equal(t, http.StatusOK, s.do(get).Code)
}

func TestHandler_SetExpiryValidation(t *testing.T) {
	s := newTestServer(t)
	req := multipartUpload(t, "shot.png", "image/png", 100, nil)
	req.Header.Set("Authorization", s.bearer(t, "user-1"))
	up := decode[uploadResponse](t, s.do(req).Body)

	for _, body := range []string{`{"ttlHours": 0}`, `{"ttlHours": -4}`, `{"ttlHours": 3000000}`, `{"ttlHours": "soon"}`, `not json`} {
		patch := httptest.NewRequest(http.MethodPatch, "/api/screenshots/"+up.ID+"/expiry", strings.NewReader(body))
		patch.Header.Set("Authorization", s.bearer(t, "user-1"))
		assert.Equal(t, http.StatusBadRequest, s.do(patch).Code, body)
	}

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/api/s/"+up.ID, nil)).Code)

	patch := httptest.NewRequest(http.MethodPatch, "/api/screenshots/"+up.ID+"/expiry", strings.NewReader(`{"ttlHours": 1}`))
	patch.Header.Set("Authorization", s.bearer(t, "user-2"))
	assert.Equal(t, http.StatusForbidden, s.do(patch).Code)
}

func TestHandler_Visibility(t *testing.T) {
	s := newTestServer(t)
	up := decode[uploadResponse](t, s.do(multipartUpload(t, "shot.png", "image/png", 100, nil)).Body)

	patch := httptest.NewRequest(http.MethodPatch, "/api/screenshots/"+up.ID+"/visibility", strings.NewReader(`{"isPublic": false}`))
	patch.Header.Set("X-Delete-Token", up.DeleteToken)
	rec := s.do(patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[Record](t, rec.Body).IsPublic)

	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, "/api/s/"+up.ID, nil)).Code)

	patch = httptest.NewRequest(http.MethodPatch, "/api/screenshots/"+up.ID+"/visibility", strings.NewReader(`{}`))
	patch.Header.Set("X-Delete-Token", up.DeleteToken)
	assert.Equal(t, http.StatusBadRequest, s.do(patch).Code)
}

func TestHandler_DeleteAnonymousWithToken(t *testing.T) {
	s := newTestServer(t)
	up := decode[uploadResponse](t, s.do(multipartUpload(t, "shot.png", "image/png", 100, nil)).Body)

	rec := s.do(httptest.NewRequest(http.MethodDelete, "/api/screenshots/"+up.ID, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/screenshots/"+up.ID+"?token="+up.DeleteToken, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.blobs.keys())

	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, "/s/"+up.ID, nil)).Code)
}

func TestHandler_Gallery(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(httptest.NewRequest(http.MethodGet, "/gallery", nil)).Code)

	for i := 0; i < 2; i++ {
		req := multipartUpload(t, fmt.Sprintf("shot-%d.png", i), "image/png", 100, nil)
		req.Header.Set("Authorization", s.bearer(t, "user-1"))
		require.Equal(t, http.StatusOK, s.do(req).Code)
		s.clock.Advance(time.Minute)
	}
	s.do(multipartUpload(t, "anon.png", "image/png", 100, nil))

	req := httptest.NewRequest(http.MethodGet, "/gallery", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: strings.TrimPrefix(s.bearer(t, "user-1"), "Bearer ")})
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	recs := decode[[]Record](t, rec.Body)
	require.Len(t, recs, 2)
	assert.Equal(t, "shot-1.png", recs[0].Title)
	assert.Equal(t, "shot-0.png", recs[1].Title)
}

func TestHandler_Presets(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/expiry-presets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"hours": null, "label": "never"},
		{"hours": 1, "label": "1 hour"},
		{"hours": 24, "label": "24 hours"},
		{"hours": 168, "label": "7 days"},
		{"hours": 720, "label": "30 days"}
	]`, rec.Body.String())
}

func TestHandler_ServeFile(t *testing.T) {
	s := newTestServer(t)
	up := decode[uploadResponse](t, s.do(multipartUpload(t, "shot.png", "image/png", 100, nil)).Body)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/files/"+up.ID+".png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, 100, rec.Body.Len())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/files/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
