// Package team authenticates the static roster of users allowed to talk to
// the bot. The roster comes from configuration; there is no signup flow.
package team

import (
	"crypto/subtle"

	"ibot/internal/domain"
)

// Member is one roster entry.
type Member struct {
	Password string
	Role     string
}

// Table is the in-memory roster, keyed by username.
type Table struct {
	members map[string]Member
}

func NewTable(members map[string]Member) *Table {
	t := &Table{members: make(map[string]Member, len(members))}
	for name, m := range members {
		t.members[name] = m
	}
	return t
}

// Len returns the roster size.
func (t *Table) Len() int {
	return len(t.members)
}

// Authenticate checks credentials against the roster using a constant-time
// password compare.
func (t *Table) Authenticate(username, password string) (domain.User, bool) {
	member, ok := t.members[username]
	if !ok {
		return domain.User{}, false
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(member.Password)) != 1 {
		return domain.User{}, false
	}

	return domain.User{Username: username, Role: member.Role}, true
}
