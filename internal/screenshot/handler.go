package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/screensnap/service/internal/middleware"
	"github.com/screensnap/service/internal/pages"
	"github.com/screensnap/service/internal/response"
	"github.com/screensnap/service/internal/storage"
)

const (
	// multipartSlack leaves room for multipart framing and the other form
	// fields so an oversized file still reaches the validator.
	multipartSlack int64 = 1 << 20
	maxFieldBytes  int64 = 4 << 10
)

const deleteTokenHeader = "X-Delete-Token"

// Handler holds HTTP handlers for screenshot endpoints.
type Handler struct {
	svc      *Service
	blobs    storage.BlobStore
	maxBytes int64
}

// NewHandler creates a new screenshot Handler. blobs is only read by ServeFile.
func NewHandler(svc *Service, blobs storage.BlobStore, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{svc: svc, blobs: blobs, maxBytes: maxBytes}
}

type uploadResponse struct {
	ID           string `json:"id"           example:"V1StGXR8aZ"`
	ShortID      string `json:"shortId"      example:"V1StGXR8aZ"`
	URL          string `json:"url"          example:"http://localhost:9000/screenshots/V1StGXR8aZ.png"`
	ShareURL     string `json:"shareUrl"     example:"/s/V1StGXR8aZ"`
	SharePath    string `json:"sharePath"    example:"/s/V1StGXR8aZ"`
	ThumbnailURL string `json:"thumbnailUrl" example:"http://localhost:9000/screenshots/V1StGXR8aZ.thumb.png"`
	DeleteToken  string `json:"deleteToken,omitempty"`
}

type expiryRequest struct {
	TTLHours *int `json:"ttlHours" example:"24"`
}

type visibilityRequest struct {
	IsPublic *bool `json:"isPublic" example:"false"`
}

// Upload godoc
//
//	@Summary		Upload a screenshot
//	@Description	Stores an image and returns its share link. Signed-in uploads are owned by the session user; anonymous uploads get a delete token.
//	@Tags			screenshots
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Param			user_id	formData	string	false	"Must equal the signed-in user"
//	@Param			width	formData	int		false	"Width in pixels"
//	@Param			height	formData	int		false	"Height in pixels"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		403		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/api/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)
	form, err := h.readUploadForm(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case form.file != nil && (errors.Is(err, errFileTooLarge) || errors.As(err, &tooBig)):
			// the file's type is known, so the validator still decides which rule failed
			verr := Validator{MaxBytes: h.maxBytes}.Validate(FileInfo{
				Present:   true,
				MimeType:  form.file.mimeType,
				SizeBytes: h.maxBytes + 1,
			})
			response.BadRequest(w, verr.Error())
		case errors.As(err, &tooBig):
			response.BadRequest(w, ErrTooLarge.Error())
		default:
			response.BadRequest(w, ErrMissingFile.Error())
		}
		return
	}

	owner := middleware.UserID(r.Context())
	if claimed := form.values.Get("user_id"); claimed != "" && claimed != owner {
		response.Forbidden(w, "user_id does not match the signed-in user")
		return
	}

	in := UploadInput{
		OwnerID: owner,
		Width:   ParseDimension(form.values.Get("width")),
		Height:  ParseDimension(form.values.Get("height")),
	}
	if f := form.file; f != nil {
		in.Body = bytes.NewReader(f.data)
		in.MimeType = f.mimeType
		in.SizeBytes = int64(len(f.data))
		in.OriginalName = f.name
	}

	desc, err := h.svc.Upload(r.Context(), in)
	if err != nil {
		var upErr *UploadError
		if !errors.As(err, &upErr) {
			log.Printf("screenshot: upload: %v", err)
			response.InternalError(w, "Upload failed")
			return
		}
		switch upErr.Kind {
		case KindInvalid:
			response.BadRequest(w, upErr.Err.Error())
		case KindMetadataWrite:
			log.Printf("screenshot: save record: %v", upErr.Err)
			response.InternalError(w, "Failed to save")
		default:
			log.Printf("screenshot: store blob: %v", upErr.Err)
			response.InternalError(w, "Upload failed")
		}
		return
	}

	response.OK(w, uploadResponse{
		ID:           desc.ID,
		ShortID:      desc.ID,
		URL:          desc.URL,
		ShareURL:     desc.SharePath,
		SharePath:    desc.SharePath,
		ThumbnailURL: desc.ThumbnailURL,
		DeleteToken:  desc.DeleteToken,
	})
}

var errFileTooLarge = errors.New("file part exceeds the upload limit")

type formFile struct {
	name     string
	mimeType string
	data     []byte
}

type uploadForm struct {
	values url.Values
	file   *formFile
}

// readUploadForm streams the multipart body part by part. The file part is
// buffered up to maxBytes+1 so an oversized file is detected after its
// headers have been seen. The returned form is never nil.
func (h *Handler) readUploadForm(r *http.Request) (*uploadForm, error) {
	form := &uploadForm{values: url.Values{}}
	mr, err := r.MultipartReader()
	if err != nil {
		return form, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return form, err
		}

		if part.FormName() == "file" && part.FileName() != "" && form.file == nil {
			form.file = &formFile{name: part.FileName(), mimeType: part.Header.Get("Content-Type")}
			form.file.data, err = io.ReadAll(io.LimitReader(part, h.maxBytes+1))
			if err != nil {
				return form, err
			}
			if int64(len(form.file.data)) > h.maxBytes {
				return form, errFileTooLarge
			}
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		if err != nil {
			return form, err
		}
		form.values.Add(part.FormName(), string(value))
	}
}

// SharePage renders the public page of a share link and counts the view.
func (h *Handler) SharePage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.ViewPublic(r.Context(), chi.URLParam(r, "id"))
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeHTML(r.Context(), w, http.StatusNotFound, pages.NotFound())
			return
		}
		log.Printf("screenshot: share page: %v", err)
		writeHTML(r.Context(), w, http.StatusInternalServerError, pages.Error("Something went wrong", "Please try again later."))
		return
	}

	writeHTML(r.Context(), w, http.StatusOK, pages.Share(pages.Shot{
		ID:        rec.ID,
		Title:     rec.Title,
		ImageURL:  rec.AssetURL,
		Width:     rec.Width,
		Height:    rec.Height,
		Views:     rec.ViewCount,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}))
}

// PublicView godoc
//
//	@Summary		View a shared screenshot
//	@Description	Returns a live public screenshot and counts the view. Expired and revoked links are reported as not found.
//	@Tags			screenshots
//	@Produce		json
//	@Param			id	path		string	true	"Short id"
//	@Success		200	{object}	Record
//	@Failure		404	{object}	response.ErrorBody
//	@Router			/api/s/{id} [get]
func (h *Handler) PublicView(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.ViewPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, rec)
}

// Gallery godoc
//
//	@Summary		List my screenshots
//	@Description	Returns every screenshot of the signed-in user, newest first, expired ones included.
//	@Tags			screenshots
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		Record
//	@Failure		401	{object}	response.ErrorBody
//	@Router			/gallery [get]
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListOwned(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, recs)
}

// Get godoc
//
//	@Summary		Get a screenshot
//	@Description	Owner view of one screenshot, without expiry filtering.
//	@Tags			screenshots
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id				path		string	true	"Short id"
//	@Param			X-Delete-Token	header		string	false	"Delete token of an anonymous upload"
//	@Success		200				{object}	Record
//	@Failure		403				{object}	response.ErrorBody
//	@Failure		404				{object}	response.ErrorBody
//	@Router			/api/screenshots/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, rec)
}

// Delete godoc
//
//	@Summary		Delete a screenshot
//	@Description	Removes the image, its thumbnail and its record. The id is never reused.
//	@Tags			screenshots
//	@Security		BearerAuth
//	@Param			id				path		string	true	"Short id"
//	@Param			X-Delete-Token	header		string	false	"Delete token of an anonymous upload"
//	@Success		204
//	@Failure		403	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Router			/api/screenshots/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), requester(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetExpiry godoc
//
//	@Summary		Change expiry
//	@Description	Sets the link to expire ttlHours (1 to 876000) from now, or never when ttlHours is null.
//	@Tags			screenshots
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Short id"
//	@Param			request	body		expiryRequest	true	"New expiry"
//	@Success		200		{object}	Record
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		403		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Router			/api/screenshots/{id}/expiry [patch]
func (h *Handler) SetExpiry(w http.ResponseWriter, r *http.Request) {
	var req expiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	rec, err := h.svc.SetExpiry(r.Context(), chi.URLParam(r, "id"), req.TTLHours, requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, rec)
}

// SetVisibility godoc
//
//	@Summary		Change visibility
//	@Description	Revokes or restores the public share link.
//	@Tags			screenshots
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Short id"
//	@Param			request	body		visibilityRequest	true	"New visibility"
//	@Success		200		{object}	Record
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		403		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Router			/api/screenshots/{id}/visibility [patch]
func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsPublic == nil {
		response.BadRequest(w, "isPublic is required")
		return
	}

	rec, err := h.svc.SetVisibility(r.Context(), chi.URLParam(r, "id"), *req.IsPublic, requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, rec)
}

// Presets godoc
//
//	@Summary		Expiry presets
//	@Description	Lists the expiry choices offered to uploaders. A null hours value means never.
//	@Tags			screenshots
//	@Produce		json
//	@Success		200	{array}	Preset
//	@Router			/api/expiry-presets [get]
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Presets())
}

// ServeFile streams a blob for the local storage driver.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.blobs.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(w, "file not found")
			return
		}
		log.Printf("screenshot: serve file: %v", err)
		response.InternalError(w, "internal server error")
		return
	}
	defer body.Close()

	setCacheControlHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("screenshot: serve file: %v", err)
	}
}

// requester identifies the caller from the session and an optional delete token.
func requester(r *http.Request) Requester {
	token := r.Header.Get(deleteTokenHeader)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return Requester{OwnerID: middleware.UserID(r.Context()), DeleteToken: token}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "screenshot not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidTTL):
		response.BadRequest(w, err.Error())
	default:
		log.Printf("screenshot: %v", err)
		response.InternalError(w, "internal server error")
	}
}

func writeHTML(ctx context.Context, w http.ResponseWriter, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(ctx, w); err != nil {
		log.Printf("screenshot: render page: %v", err)
	}
}

// Stored blobs never change, so they may be cached forever.
func setCacheControlHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
}
