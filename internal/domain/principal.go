package domain

import (
	"fmt"
	"slices"
)

// Role classifies what a principal is allowed to do. The set is closed:
// authorization decisions are set-membership tests over these values, never
// raw string comparisons.
type Role int

const (
	// RoleBuyer is the baseline, least-privileged role. Principals
	// synthesized from an external identity with no directory row get it.
	RoleBuyer Role = iota
	RoleAgent
	RoleOwner
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleAgent:
		return "agent"
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a stored role string to a Role. Unknown strings are
// rejected; use RoleOrBaseline when reading rows that may predate the enum.
func ParseRole(s string) (Role, error) {
	switch s {
	case "buyer":
		return RoleBuyer, nil
	case "agent":
		return RoleAgent, nil
	case "owner":
		return RoleOwner, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleBuyer, fmt.Errorf("unknown role %q", s)
	}
}

// RoleOrBaseline parses s, falling back to RoleBuyer for anything it does
// not recognize.
func RoleOrBaseline(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		return RoleBuyer
	}
	return r
}

// MarshalJSON renders the role as its string form.
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON accepts the string form, defaulting unknown values to buyer.
func (r *Role) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*r = RoleOrBaseline(s)
	return nil
}

// Principal is the resolved identity attached to a request for
// authorization decisions. It lives for the request only and is never
// persisted by the auth pipeline.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// HasRole reports whether the principal's role is in the permitted set.
func (p Principal) HasRole(roles ...Role) bool {
	return slices.Contains(roles, p.Role)
}

// IsAdmin reports whether the principal bypasses ownership checks.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// ExternalIdentity is what the hosted identity provider knows about a
// subject: the id and email it vouches for plus any metadata captured at
// sign-up. Opaque to this system beyond these fields.
type ExternalIdentity struct {
	ID       string
	Email    string
	Metadata map[string]string
}

// Meta returns the metadata value for key, or the empty string.
func (e ExternalIdentity) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
