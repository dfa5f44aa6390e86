package user

import "time"

// ID is the durable handle of a registered caller.
type ID int64

// Identity captures a registered caller as exposed to HTTP handlers.
type Identity struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is the stored identity row including its credential hash.
type Account struct {
	Identity
	PasswordHash string `json:"-"`
}
