package chat

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/explainer-ai/backend/internal/model/chat"
	"github.com/explainer-ai/backend/internal/model/user"
	"github.com/explainer-ai/backend/internal/store/sqlite"
)

// RegisteredRepository is the row store behind registered scopes.
// Lookups of missing rows return sqlite.ErrNotFound.
type RegisteredRepository interface {
	GetSession(ctx context.Context, userID user.ID, chatID string) (*chat.Session, error)
	ListSessions(ctx context.Context, userID user.ID) ([]chat.Summary, error)
	UpsertSession(ctx context.Context, userID user.ID, sess *chat.Session) error
	UpdateSessionTitle(ctx context.Context, userID user.ID, chatID, title string, at time.Time) error
	DeleteSession(ctx context.Context, userID user.ID, chatID string) error
}

// AnonymousRepository is the whole-document store behind the anonymous scope.
type AnonymousRepository interface {
	Load(ctx context.Context) []chat.Session
	Update(ctx context.Context, fn func([]chat.Session) ([]chat.Session, error)) error
}

// mutateFunc receives the stored session (nil when absent) and returns the
// document to persist.
type mutateFunc func(current *chat.Session) (*chat.Session, error)

// backend is the per-scope view the service routes every call through.
type backend interface {
	get(ctx context.Context, sessionID string) (*chat.Session, error)
	list(ctx context.Context) ([]chat.Summary, error)
	mutate(ctx context.Context, sessionID string, fn mutateFunc) error
	rename(ctx context.Context, sessionID, title string, at time.Time) error
	remove(ctx context.Context, sessionID string) error
}

type registeredBackend struct {
	repo   RegisteredRepository
	userID user.ID
}

func (b registeredBackend) get(ctx context.Context, sessionID string) (*chat.Session, error) {
	sess, err := b.repo.GetSession(ctx, b.userID, sessionID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (b registeredBackend) list(ctx context.Context) ([]chat.Summary, error) {
	return b.repo.ListSessions(ctx, b.userID)
}

func (b registeredBackend) mutate(ctx context.Context, sessionID string, fn mutateFunc) error {
	current, err := b.get(ctx, sessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		current = nil
	case err != nil:
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return b.repo.UpsertSession(ctx, b.userID, next)
}

func (b registeredBackend) rename(ctx context.Context, sessionID, title string, at time.Time) error {
	err := b.repo.UpdateSessionTitle(ctx, b.userID, sessionID, title, at)
	if errors.Is(err, sqlite.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (b registeredBackend) remove(ctx context.Context, sessionID string) error {
	err := b.repo.DeleteSession(ctx, b.userID, sessionID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

type anonymousBackend struct {
	repo AnonymousRepository
}

func (b anonymousBackend) get(ctx context.Context, sessionID string) (*chat.Session, error) {
	sessions := b.repo.Load(ctx)
	if idx := indexOf(sessions, sessionID); idx >= 0 {
		sess := sessions[idx].Clone()
		return &sess, nil
	}
	return nil, ErrSessionNotFound
}

func (b anonymousBackend) list(ctx context.Context) ([]chat.Summary, error) {
	sessions := b.repo.Load(ctx)

	list := make([]chat.Summary, 0, len(sessions))
	for _, sess := range sessions {
		list = append(list, sess.Summarize())
	}
	// Stable: equal timestamps keep document (insertion) order.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (b anonymousBackend) mutate(ctx context.Context, sessionID string, fn mutateFunc) error {
	return b.repo.Update(ctx, func(sessions []chat.Session) ([]chat.Session, error) {
		idx := indexOf(sessions, sessionID)

		var current *chat.Session
		if idx >= 0 {
			sess := sessions[idx].Clone()
			current = &sess
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}

		if idx >= 0 {
			sessions[idx] = *next
			return sessions, nil
		}
		return append(sessions, *next), nil
	})
}

func (b anonymousBackend) rename(ctx context.Context, sessionID, title string, at time.Time) error {
	return b.mutate(ctx, sessionID, func(current *chat.Session) (*chat.Session, error) {
		if current == nil {
			return nil, ErrSessionNotFound
		}
		current.Title = title
		current.UpdatedAt = notBefore(at, current.CreatedAt)
		return current, nil
	})
}

func (b anonymousBackend) remove(ctx context.Context, sessionID string) error {
	return b.repo.Update(ctx, func(sessions []chat.Session) ([]chat.Session, error) {
		idx := indexOf(sessions, sessionID)
		if idx < 0 {
			return nil, ErrSessionNotFound
		}
		return append(sessions[:idx], sessions[idx+1:]...), nil
	})
}

func indexOf(sessions []chat.Session, sessionID string) int {
	for i := range sessions {
		if sessions[i].ID == sessionID {
			return i
		}
	}
	return -1
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
