// Package dedup detects re-submission of identical media content.
//
// Every media payload is reduced to a SHA-256 fingerprint. The first time a
// member posts a given fingerprint the date is remembered; any later post of
// the same bytes by the same member is reported as a duplicate together with
// that first-seen date.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ayazawa/kintore/internal/storage"
)

// MinMediaBytes is the smallest payload accepted for fingerprinting. Anything
// under this is a placeholder or truncated media object, not a real post.
const MinMediaBytes = 100

// ErrMediaTooSmall is returned for payloads under MinMediaBytes.
var ErrMediaTooSmall = errors.New("media payload too small")

// Fingerprint computes the content fingerprint of a raw media payload.
func Fingerprint(content []byte) (string, error) {
	if len(content) < MinMediaBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrMediaTooSmall, len(content))
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// IndexStore is the storage surface the index needs.
type IndexStore interface {
	FingerprintFirstSeen(ctx context.Context, memberID, fingerprint string) (string, error)
	RecordFingerprint(ctx context.Context, memberID, fingerprint, day string) error
}

// Index looks up and records per-member content fingerprints.
type Index struct {
	store IndexStore
}

// NewIndex creates an Index backed by the given store.
func NewIndex(store IndexStore) *Index {
	return &Index{store: store}
}

// FirstSeen returns the date the fingerprint was first recorded for the
// member, and whether it was found.
func (i *Index) FirstSeen(ctx context.Context, memberID, fingerprint string) (string, bool, error) {
	day, err := i.store.FingerprintFirstSeen(ctx, memberID, fingerprint)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	return day, true, nil
}

// Record stores the first-seen date for a fingerprint. Calling it again with
// the same member and fingerprint is a no-op.
func (i *Index) Record(ctx context.Context, memberID, fingerprint, day string) error {
	return i.store.RecordFingerprint(ctx, memberID, fingerprint, day)
}
