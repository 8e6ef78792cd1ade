package screenshot

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/screensnap/service/internal/shortid"
	"github.com/screensnap/service/internal/storage"
	"github.com/screensnap/service/internal/thumbnail"
)

const (
	defaultExtension  = "png"
	deleteTokenLength = 32
)

// Options tunes the upload pipeline.
type Options struct {
	MaxBytes int64
	// Thumbnails enables generating a resized png next to each jpeg/png/gif upload.
	Thumbnails bool
	// CleanupOrphans deletes the just-written blobs when the record insert fails.
	// Off by default: the blob is then left behind as an orphan.
	CleanupOrphans bool
}

// UploadInput is one incoming file. A nil Body means no file was sent.
type UploadInput struct {
	Body         io.Reader
	MimeType     string
	SizeBytes    int64
	OriginalName string
	OwnerID      string
	Width        int
	Height       int
}

// Service contains the upload pipeline and the gallery/view operations.
type Service struct {
	records   RecordStore
	blobs     storage.BlobStore
	ids       *shortid.Generator
	policy    *Policy
	validator Validator
	opts      Options
}

// NewService creates a new screenshot Service.
func NewService(records RecordStore, blobs storage.BlobStore, ids *shortid.Generator, policy *Policy, opts Options) *Service {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Service{
		records:   records,
		blobs:     blobs,
		ids:       ids,
		policy:    policy,
		validator: Validator{MaxBytes: opts.MaxBytes},
		opts:      opts,
	}
}

// Policy returns the expiry policy used by the service.
func (s *Service) Policy() *Policy {
	return s.policy
}

// Upload validates the file, stores the blob, then persists its record.
// The blob is always written before the record so a failure in between leaves
// an unreferenced blob, never a record pointing at nothing. Nothing is retried.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	err := s.validator.Validate(FileInfo{
		Present:   in.Body != nil,
		MimeType:  in.MimeType,
		SizeBytes: in.SizeBytes,
	})
	if err != nil {
		return nil, &UploadError{Kind: KindInvalid, Err: err}
	}

	id, err := s.ids.Generate()
	if err != nil {
		return nil, &UploadError{Kind: KindStorageWrite, Err: fmt.Errorf("generate id: %w", err)}
	}

	var token string
	if in.OwnerID == "" {
		token, err = s.ids.Token(deleteTokenLength)
		if err != nil {
			return nil, &UploadError{Kind: KindStorageWrite, Err: fmt.Errorf("generate delete token: %w", err)}
		}
	}

	key := id + "." + extension(in.OriginalName)

	body := in.Body
	var copied *bytes.Buffer
	if s.opts.Thumbnails && thumbnail.Supported(in.MimeType) {
		copied = bytes.NewBuffer(make([]byte, 0, in.SizeBytes))
		body = io.TeeReader(in.Body, copied)
	}

	if err := s.blobs.Put(ctx, key, body, in.SizeBytes, in.MimeType); err != nil {
		return nil, &UploadError{Kind: KindStorageWrite, Err: err}
	}
	assetURL := s.blobs.PublicURL(key)

	rec := &Record{
		ID:           id,
		OwnerID:      in.OwnerID,
		AssetURL:     assetURL,
		ThumbnailURL: assetURL,
		OriginalName: in.OriginalName,
		Title:        in.OriginalName,
		MimeType:     in.MimeType,
		SizeBytes:    in.SizeBytes,
		Width:        in.Width,
		Height:       in.Height,
		CreatedAt:    s.policy.now().UTC().Truncate(time.Microsecond),
		ViewCount:    0,
		IsPublic:     true,
		StorageKey:   key,
		DeleteToken:  token,
	}

	if copied != nil {
		s.attachThumbnail(ctx, rec, copied)
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		if s.opts.CleanupOrphans {
			s.deleteBlobs(ctx, rec)
		}
		return nil, &UploadError{Kind: KindMetadataWrite, Err: err}
	}

	log.Printf("screenshot: stored id=%s key=%s size=%d owner=%q", rec.ID, key, rec.SizeBytes, rec.OwnerID)

	return &Descriptor{
		ID:           rec.ID,
		URL:          rec.AssetURL,
		ThumbnailURL: rec.ThumbnailURL,
		SharePath:    rec.SharePath(),
		DeleteToken:  token,
	}, nil
}

// attachThumbnail stores a thumbnail for rec. Failures only cost the
// thumbnail: the record keeps pointing at the full asset.
func (s *Service) attachThumbnail(ctx context.Context, rec *Record, original io.Reader) {
	thumb, err := thumbnail.Make(rec.MimeType, original)
	if err != nil {
		log.Printf("screenshot: thumbnail for %s skipped: %v", rec.ID, err)
		return
	}

	key := rec.ID + ".thumb.png"
	if err := s.blobs.Put(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), thumbnail.ContentType); err != nil {
		log.Printf("screenshot: store thumbnail for %s: %v", rec.ID, err)
		return
	}
	rec.ThumbnailKey = key
	rec.ThumbnailURL = s.blobs.PublicURL(key)
}

// ListOwned returns every record of ownerID, newest first, expired ones included.
func (s *Service) ListOwned(ctx context.Context, ownerID string) ([]*Record, error) {
	recs, err := s.records.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	return recs, nil
}

// ViewPublic returns a live, public record and counts the view. Absent,
// expired and revoked records all yield ErrNotFound.
func (s *Service) ViewPublic(ctx context.Context, id string) (*Record, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.IsPublic || !s.policy.IsLive(rec) {
		return nil, ErrNotFound
	}

	if vc, ok := s.records.(ViewCounter); ok {
		n, err := vc.IncrementViews(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count view: %w", err)
		}
		rec.ViewCount = n
		return rec, nil
	}

	// read-then-write: concurrent views may lose an increment
	rec.ViewCount++
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	return rec, nil
}

// Get returns a record to its owner without any expiry filtering.
func (s *Service) Get(ctx context.Context, id string, req Requester) (*Record, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(rec, req); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the blobs, best effort, then the record.
func (s *Service) Delete(ctx context.Context, id string, req Requester) error {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(rec, req); err != nil {
		return err
	}

	s.deleteBlobs(ctx, rec)

	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete screenshot: %w", err)
	}
	log.Printf("screenshot: deleted id=%s", id)
	return nil
}

// SetExpiry recomputes expiresAt from ttlHours; nil means never.
func (s *Service) SetExpiry(ctx context.Context, id string, ttlHours *int, req Requester) (*Record, error) {
	if err := ValidTTL(ttlHours); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, req, func(rec *Record) {
		rec.ExpiresAt = s.policy.ComputeExpiry(ttlHours)
	})
}

// SetVisibility revokes or restores public access to the share link.
func (s *Service) SetVisibility(ctx context.Context, id string, public bool, req Requester) (*Record, error) {
	return s.mutate(ctx, id, req, func(rec *Record) {
		rec.IsPublic = public
	})
}

func (s *Service) mutate(ctx context.Context, id string, req Requester, change func(*Record)) (*Record, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(rec, req); err != nil {
		return nil, err
	}

	change(rec)
	if err := s.records.Update(ctx, rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update screenshot: %w", err)
	}
	return rec, nil
}

func (s *Service) deleteBlobs(ctx context.Context, rec *Record) {
	for _, key := range rec.blobKeys() {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Printf("screenshot: delete blob %s of %s: %v", key, rec.ID, err)
		}
	}
}

// authorize lets owners manage their records. Anonymous records are managed
// with the delete token handed out at upload; those without one are open to
// anyone holding the id.
func authorize(rec *Record, req Requester) error {
	if rec.OwnerID != "" {
		if req.OwnerID != rec.OwnerID {
			return ErrForbidden
		}
		return nil
	}
	if rec.DeleteToken == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(req.DeleteToken), []byte(rec.DeleteToken)) != 1 {
		return ErrForbidden
	}
	return nil
}

// extension returns the lower-cased extension of name without the dot,
// or "png" when there is no usable one.
func extension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" || len(ext) > 8 {
		return defaultExtension
	}
	for _, c := range ext {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return defaultExtension
		}
	}
	return ext
}
