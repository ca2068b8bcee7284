package capability

import (
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Capability is an authorization attribute an actor either holds or does
// not, independent of how the platform represents it.
type Capability string

const (
	Admin      Capability = "admin"
	Staff      Capability = "staff"
	Verified   Capability = "verified"
	Newcomer   Capability = "newcomer"
	OnTrial    Capability = "on-trial"
	FullMember Capability = "full-member"
	Streamer   Capability = "streamer"
)

// Set maps capabilities to the role IDs that confer them. It keeps
// workflow code decoupled from the platform's permission representation.
type Set struct {
	roles map[Capability][]model.RoleID
}

// NewSet creates an empty capability set
func NewSet() *Set {
	return &Set{roles: make(map[Capability][]model.RoleID)}
}

// Grant binds one or more roles to a capability. Empty role IDs are
// ignored so unset optional config slots simply confer nothing.
func (s *Set) Grant(c Capability, roles ...model.RoleID) {
	for _, r := range roles {
		if r == "" {
			continue
		}
		s.roles[c] = append(s.roles[c], r)
	}
}

// Has reports whether the member holds the capability. Platform-level
// administrators hold the admin capability regardless of roles.
func (s *Set) Has(m *platform.Member, c Capability) bool {
	if m == nil {
		return false
	}
	if c == Admin && m.IsAdmin {
		return true
	}
	for _, r := range s.roles[c] {
		if m.HasRole(r) {
			return true
		}
	}
	return false
}

// Role returns the first role bound to the capability. Used where a
// capability must be granted or revoked, not just checked.
func (s *Set) Role(c Capability) (model.RoleID, bool) {
	rs := s.roles[c]
	if len(rs) == 0 {
		return "", false
	}
	return rs[0], true
}

// Configured reports whether any role is bound to the capability
func (s *Set) Configured(c Capability) bool {
	return len(s.roles[c]) > 0
}
