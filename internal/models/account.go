package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Role struct {
	ID   int64
	Name string
}

// Account is a registered user. Roles are resolved from the store on every
// lookup and never cached past a single token's lifetime.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash []byte
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot returns a copy safe to embed in a token or response body.
func (a Account) Snapshot() Account {
	a.PasswordHash = nil
	if a.Roles != nil {
		roles := make([]string, len(a.Roles))
		copy(roles, a.Roles)
		a.Roles = roles
	}
	return a
}

func (a Account) Principal() Principal {
	authorities := make([]string, len(a.Roles))
	copy(authorities, a.Roles)
	return Principal{
		AccountID:   a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Authorities: authorities,
	}
}

// Activity is the one-to-one activation record of an Account.
type Activity struct {
	AccountID    string
	ActivationID string
	Activated    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
