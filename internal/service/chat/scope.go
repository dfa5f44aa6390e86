package chat

import (
	"strconv"

	"github.com/explainer-ai/backend/internal/model/user"
)

const (
	modeAnonymous  = "anonymous"
	modeRegistered = "registered"
)

// Scope selects which backend a call is routed to. A registered scope is
// keyed by identity and lives in the relational store; the anonymous scope is
// the shared guest document. Sessions never cross between the two.
type Scope struct {
	userID     user.ID
	registered bool
}

// Anonymous returns the guest scope.
func Anonymous() Scope {
	return Scope{}
}

// Registered returns the scope of one registered identity.
func Registered(id user.ID) Scope {
	return Scope{userID: id, registered: true}
}

// UserID reports the identity of a registered scope.
func (s Scope) UserID() (user.ID, bool) {
	return s.userID, s.registered
}

// Mode returns "registered" or "anonymous".
func (s Scope) Mode() string {
	if s.registered {
		return modeRegistered
	}
	return modeAnonymous
}

func (s Scope) String() string {
	if !s.registered {
		return modeAnonymous
	}
	return "user:" + strconv.FormatInt(int64(s.userID), 10)
}

func (s Scope) lockKey(sessionID string) string {
	return s.String() + "/" + sessionID
}
