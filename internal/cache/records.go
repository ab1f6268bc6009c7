package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/modelfetch/modelfetch/internal/domain"
)

// Key prefixes for stored records
const (
	PrefixVerified  = "verified"
	PrefixProcessed = "processed"
)

// Record is the persisted proof that a file at a path was verified
type Record struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Sha256     string    `json:"sha256"`
	ModTime    time.Time `json:"mod_time"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Key generates the store key for a destination path
func Key(path string) string {
	hash := sha256.Sum256([]byte(path))
	return PrefixVerified + ":" + hex.EncodeToString(hash[:])
}

// Store persists verification records so already-verified files can be
// skipped on a re-run without re-downloading or re-hashing.
type Store struct {
	cache domain.Cache
}

// NewStore creates a record store on top of a cache backend
func NewStore(cache domain.Cache) *Store {
	return &Store{cache: cache}
}

// IsVerified reports whether path holds a file whose record matches the
// expected size and digest and whose on-disk metadata is unchanged since
// verification. Any store error degrades to "not verified".
func (s *Store) IsVerified(ctx context.Context, path string, size int64, sha256sum string) bool {
	if s == nil || s.cache == nil {
		return false
	}

	data, err := s.cache.Get(ctx, Key(path))
	if err != nil {
		return false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return false
	}

	if rec.Size != size || rec.Sha256 != sha256sum {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Size() == rec.Size && info.ModTime().Equal(rec.ModTime)
}

// MarkVerified records a successful verification for path
func (s *Store) MarkVerified(ctx context.Context, path string, size int64, sha256sum string) error {
	if s == nil || s.cache == nil {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	rec := Record{
		Path:       path,
		Size:       size,
		Sha256:     sha256sum,
		ModTime:    info.ModTime(),
		VerifiedAt: time.Now(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.cache.Set(ctx, Key(path), data, 0)
}

// Invalidate drops the record for path
func (s *Store) Invalidate(ctx context.Context, path string) error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, Key(path))
}

// processedKey generates the store key for a model's postprocessing marker
func processedKey(modelDir string) string {
	hash := sha256.Sum256([]byte(modelDir))
	return PrefixProcessed + ":" + hex.EncodeToString(hash[:])
}

// StepsDigest fingerprints a model's postprocessing declaration so a marker
// goes stale when the manifest's steps change.
func StepsDigest(steps any) string {
	data, err := json.Marshal(steps)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// IsProcessed reports whether postprocessing already ran for modelDir with
// the same declared steps.
func (s *Store) IsProcessed(ctx context.Context, modelDir, stepsDigest string) bool {
	if s == nil || s.cache == nil || stepsDigest == "" {
		return false
	}
	data, err := s.cache.Get(ctx, processedKey(modelDir))
	if err != nil {
		return false
	}
	return string(data) == stepsDigest
}

// MarkProcessed records that postprocessing completed for modelDir
func (s *Store) MarkProcessed(ctx context.Context, modelDir, stepsDigest string) error {
	if s == nil || s.cache == nil || stepsDigest == "" {
		return nil
	}
	return s.cache.Set(ctx, processedKey(modelDir), []byte(stepsDigest), 0)
}
