package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"
)

// DocumentKey names the single document holding every record.
const DocumentKey = "screensnap_screenshots"

// RetiredKey names the document listing the ids of deleted records.
const RetiredKey = "screensnap_retired_ids"

// documentRecord is the persisted form of a Record, including the fields
// that are hidden from API responses.
type documentRecord struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId,omitempty"`
	AssetURL     string     `json:"assetUrl"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	OriginalName string     `json:"originalName"`
	Title        string     `json:"title"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	ViewCount    int64      `json:"viewCount"`
	IsPublic     bool       `json:"isPublic"`
	StorageKey   string     `json:"storageKey"`
	ThumbnailKey string     `json:"thumbnailKey,omitempty"`
	DeleteToken  string     `json:"deleteToken,omitempty"`
}

// DocumentStore keeps all records as one JSON array that is replaced as a
// whole on every change. Deleted ids go to a second array under RetiredKey.
// With an empty dir both documents live in memory.
type DocumentStore struct {
	mu  sync.Mutex
	dir string
	mem map[string][]byte
}

// NewDocumentStore returns a store persisting to dir/screensnap_screenshots.json
// and dir/screensnap_retired_ids.json, or an in-memory store when dir is empty.
func NewDocumentStore(dir string) (*DocumentStore, error) {
	if dir == "" {
		return &DocumentStore{mem: map[string][]byte{}}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

// Insert prepends rec so the document stays newest first. Ids of deleted
// records are refused.
func (s *DocumentStore) Insert(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	retired, err := s.loadRetired()
	if err != nil {
		return err
	}
	if slices.Contains(retired, rec.ID) {
		return ErrIDTaken
	}

	docs, err := s.load()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.ID == rec.ID {
			return ErrIDTaken
		}
	}

	docs = append([]documentRecord{toDocument(rec)}, docs...)
	return s.save(docs)
}

// GetByID fetches a record by its short id.
func (s *DocumentStore) GetByID(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return docs[i].record(), nil
		}
	}
	return nil, ErrNotFound
}

// ListByOwner returns the owner's records, newest first.
func (s *DocumentStore) ListByOwner(_ context.Context, ownerID string) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}

	recs := []*Record{}
	for i := range docs {
		if docs[i].OwnerID == ownerID {
			recs = append(recs, docs[i].record())
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// Update persists the mutable fields of rec.
func (s *DocumentStore) Update(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return err
	}
	for i := range docs {
		if docs[i].ID == rec.ID {
			docs[i].Title = rec.Title
			docs[i].ExpiresAt = rec.ExpiresAt
			docs[i].IsPublic = rec.IsPublic
			docs[i].ViewCount = rec.ViewCount
			return s.save(docs)
		}
	}
	return ErrNotFound
}

// IncrementViews bumps the view count while holding the document lock.
func (s *DocumentStore) IncrementViews(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return 0, err
	}
	for i := range docs {
		if docs[i].ID == id {
			docs[i].ViewCount++
			if err := s.save(docs); err != nil {
				return 0, err
			}
			return docs[i].ViewCount, nil
		}
	}
	return 0, ErrNotFound
}

// Delete removes the record and retires its id. The id is retired before
// the record goes, so a failure in between never frees the id.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(docs, func(d documentRecord) bool { return d.ID == id })
	if i < 0 {
		return ErrNotFound
	}

	retired, err := s.loadRetired()
	if err != nil {
		return err
	}
	if !slices.Contains(retired, id) {
		if err := s.write(RetiredKey, append(retired, id)); err != nil {
			return err
		}
	}

	return s.save(slices.Delete(docs, i, i+1))
}

// load reads the record document. A missing document is an empty list.
func (s *DocumentStore) load() ([]documentRecord, error) {
	docs := []documentRecord{}
	if err := s.read(DocumentKey, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentStore) save(docs []documentRecord) error {
	return s.write(DocumentKey, docs)
}

// loadRetired reads the ids of deleted records.
func (s *DocumentStore) loadRetired() ([]string, error) {
	ids := []string{}
	if err := s.read(RetiredKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *DocumentStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// read decodes the document stored under key into v, leaving v untouched
// when there is no such document.
func (s *DocumentStore) read(key string, v any) error {
	raw := s.mem[key]
	if s.dir != "" {
		b, err := os.ReadFile(s.path(key))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read document %s: %w", key, err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", key, err)
	}
	return nil
}

// write replaces the whole document under key, via a temp file and rename on disk.
func (s *DocumentStore) write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	if s.dir == "" {
		s.mem[key] = raw
		return nil
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write document %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("replace document %s: %w", key, err)
	}
	return nil
}

// documentRecord mirrors Record field for field, so the two convert directly.
func toDocument(rec *Record) documentRecord {
	return documentRecord(*rec)
}

func (d *documentRecord) record() *Record {
	rec := Record(*d)
	return &rec
}
