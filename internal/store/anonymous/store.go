// Package anonymous keeps guest-mode chat sessions as one shared document.
//
// Every operation loads the whole collection and every mutation rewrites it.
// Mutations within one process are serialized through Update; across
// processes the last writer wins on the whole document.
package anonymous

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/explainer-ai/backend/internal/model/chat"
)

// Store is the anonymous session collection.
type Store struct {
	blob Blob
	mu   sync.Mutex
}

// New returns a Store persisting into blob.
func New(blob Blob) *Store {
	return &Store{blob: blob}
}

// ErrCorruptDocument is returned by Update when the stored document cannot be
// parsed. The document is left untouched.
var ErrCorruptDocument = errors.New("chat history document is corrupt")

// Load returns the whole collection. A missing or unreadable document is
// treated as empty; the error is logged and never returned.
func (s *Store) Load(ctx context.Context) []chat.Session {
	sessions, err := s.load(ctx)
	if err != nil {
		log.Printf("[anon] %v", err)
		return []chat.Session{}
	}
	return sessions
}

// load is the strict read used before writes. Only a missing document counts
// as empty.
func (s *Store) load(ctx context.Context) ([]chat.Session, error) {
	data, err := s.blob.Read(ctx)
	if errors.Is(err, ErrBlobNotExist) {
		return []chat.Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []chat.Session{}, nil
	}

	var sessions []chat.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	return sessions, nil
}

// Replace overwrites the persisted collection.
func (s *Store) Replace(ctx context.Context, sessions []chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, sessions)
}

// Update runs a read-modify-write of the collection under the writer lock.
// A failed or unparsable read aborts the update without writing, as does an
// error from fn, which is passed through.
func (s *Store) Update(ctx context.Context, fn func([]chat.Session) ([]chat.Session, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.replace(ctx, next)
}

func (s *Store) replace(ctx context.Context, sessions []chat.Session) error {
	if sessions == nil {
		sessions = []chat.Session{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}

	if err := s.blob.Write(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("write chat history: %w", err)
	}
	return nil
}
