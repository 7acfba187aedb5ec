package database

import (
	"context"
)

// ReferenceStore persists reference image embeddings so a gallery is only
// sent to the embedding server once per image version.
type ReferenceStore interface {
	// Get returns the stored embedding for path, or nil if none is stored
	Get(ctx context.Context, path string) (*ReferenceEmbedding, error)
	// Save inserts or replaces the embedding for ref.Path
	Save(ctx context.Context, ref *ReferenceEmbedding) error
	// Count returns the number of stored reference embeddings
	Count(ctx context.Context) (int, error)
}

// SessionReader provides read access to stored attendance sessions
type SessionReader interface {
	// Recent returns the most recent sessions, newest first
	Recent(ctx context.Context, limit int) ([]StoredSession, error)
	// Entries returns the per-person rows of one session in gallery order
	Entries(ctx context.Context, sessionID string) ([]StoredEntry, error)
}

// SessionWriter stores finished sessions
type SessionWriter interface {
	SessionReader

	// SaveSession stores a session and its entries in one transaction
	SaveSession(ctx context.Context, session *StoredSession, entries []StoredEntry) error
}
