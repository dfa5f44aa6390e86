// Package chat implements the chat session store: turn persistence, listing,
// rename and delete over two storage modes.
//
// A call carrying a registered Scope is served by the relational store keyed
// by (identity, session id). A call with the Anonymous scope is served by the
// shared guest document keyed by session id alone. The fork exists for
// clients that predate registration and is never blended: a session created
// in one mode is invisible in the other.
//
// Writes to the same (scope, session id) are serialized inside one process.
// Across processes the contract is last-writer-wins on the whole session
// document (registered) or the whole collection (anonymous).
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/explainer-ai/backend/internal/analysis/title"
	"github.com/explainer-ai/backend/internal/metrics"
	"github.com/explainer-ai/backend/internal/model/chat"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmptyMessage       = errors.New("message must not be empty")
	ErrTitleRequired      = errors.New("title must not be empty")
	ErrStorageUnavailable = errors.New("session storage unavailable")
)

// Turn reports where a saved exchange landed.
type Turn struct {
	SessionID string `json:"chat_id"`
	Title     string `json:"title"`
	Created   bool   `json:"created"`
}

// Stats aggregates the anonymous collection.
type Stats struct {
	TotalChats    int `json:"total_chats"`
	TotalMessages int `json:"total_messages"`
}

// Service is the chat session store.
type Service struct {
	registered RegisteredRepository
	anonymous  AnonymousRepository
	locks      *keyedMutex
	now        func() time.Time
	newID      func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService wires the two backends into a session store.
func NewService(registered RegisteredRepository, anonymous AnonymousRepository, opts ...Option) *Service {
	s := &Service{
		registered: registered,
		anonymous:  anonymous,
		locks:      newKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      NewSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionID returns a time-ordered, collision-resistant session id.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "chat_" + uuid.NewString()
	}
	return "chat_" + id.String()
}

// GetSession returns one session with its full message log.
func (s *Service) GetSession(ctx context.Context, scope Scope, sessionID string) (sess *chat.Session, err error) {
	sessionID = normalizeID(sessionID)
	defer s.track("get", scope, sessionID, time.Now(), &err)

	return s.backendFor(scope).get(ctx, sessionID)
}

// ListSessions returns session summaries, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, scope Scope) (list []chat.Summary, err error) {
	defer s.track("list", scope, "", time.Now(), &err)

	return s.backendFor(scope).list(ctx)
}

// SaveTurn persists one user/assistant exchange. An empty sessionID starts a
// new session. An id that does not resolve in scope creates a session under
// that id; its title is derived from userText. An existing session keeps its
// title and gets both messages appended, user first.
func (s *Service) SaveTurn(ctx context.Context, scope Scope, sessionID, userText, assistantText string) (turn Turn, err error) {
	sessionID = normalizeID(sessionID)
	if sessionID == "" {
		sessionID = s.newID()
	}
	defer s.track("save_turn", scope, sessionID, time.Now(), &err)

	if strings.TrimSpace(userText) == "" {
		return Turn{}, ErrEmptyMessage
	}

	unlock := s.locks.Lock(scope.lockKey(sessionID))
	defer unlock()

	now := s.now()
	err = s.backendFor(scope).mutate(ctx, sessionID, func(current *chat.Session) (*chat.Session, error) {
		next := appendTurn(current, sessionID, userText, assistantText, now)
		turn = Turn{SessionID: next.ID, Title: next.Title, Created: current == nil}
		return next, nil
	})
	if err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// RenameSession replaces a session title, leaving its messages untouched.
func (s *Service) RenameSession(ctx context.Context, scope Scope, sessionID, newTitle string) (err error) {
	sessionID = normalizeID(sessionID)
	defer s.track("rename", scope, sessionID, time.Now(), &err)

	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return ErrTitleRequired
	}

	unlock := s.locks.Lock(scope.lockKey(sessionID))
	defer unlock()

	return s.backendFor(scope).rename(ctx, sessionID, newTitle, s.now())
}

// DeleteSession removes a session. Deleting a missing session reports
// ErrSessionNotFound.
func (s *Service) DeleteSession(ctx context.Context, scope Scope, sessionID string) (err error) {
	sessionID = normalizeID(sessionID)
	defer s.track("delete", scope, sessionID, time.Now(), &err)

	unlock := s.locks.Lock(scope.lockKey(sessionID))
	defer unlock()

	return s.backendFor(scope).remove(ctx, sessionID)
}

// AnonymousStats counts sessions and messages in the guest document.
func (s *Service) AnonymousStats(ctx context.Context) Stats {
	var stats Stats
	for _, sess := range s.anonymous.Load(ctx) {
		stats.TotalChats++
		stats.TotalMessages += len(sess.Messages)
	}
	return stats
}

// normalizeID strips surrounding whitespace so every operation addresses a
// session by the same key.
func normalizeID(sessionID string) string {
	return strings.TrimSpace(sessionID)
}

func (s *Service) backendFor(scope Scope) backend {
	if userID, ok := scope.UserID(); ok {
		return registeredBackend{repo: s.registered, userID: userID}
	}
	return anonymousBackend{repo: s.anonymous}
}

func appendTurn(current *chat.Session, sessionID, userText, assistantText string, now time.Time) *chat.Session {
	var next chat.Session
	if current == nil {
		next = chat.Session{
			ID:        sessionID,
			Title:     title.Derive(userText),
			Messages:  make([]chat.Message, 0, 2),
			CreatedAt: now,
		}
	} else {
		next = current.Clone()
	}

	next.Messages = append(next.Messages,
		chat.Message{Role: chat.RoleUser, Content: userText, Timestamp: now},
		chat.Message{Role: chat.RoleAssistant, Content: assistantText, Timestamp: now},
	)
	next.UpdatedAt = notBefore(now, next.CreatedAt)
	return &next
}

// track records the outcome of a public call and converts anything outside
// the error taxonomy, panics included, into ErrStorageUnavailable.
func (s *Service) track(op string, scope Scope, sessionID string, start time.Time, errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("panic: %v", r)
	}

	outcome := "ok"
	switch err := *errp; {
	case err == nil:
	case errors.Is(err, ErrSessionNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrTitleRequired):
		outcome = "invalid"
	default:
		outcome = "error"
		log.Printf("[chat] %s failed scope=%s session=%q: %v", op, scope, sessionID, err)
		*errp = ErrStorageUnavailable
	}

	metrics.RecordStoreOperation(op, scope.Mode(), outcome, time.Since(start))
}
