package user

import "github.com/google/uuid"

// User represents a user account in the system.
type User struct {
	ID                uuid.UUID // ID is assigned once at creation and never reused
	Email             string    // Email is the unique login handle
	HashedPassword    string    // HashedPassword never leaves the service
	FullName          string    // FullName is an optional display name
	IsActive          bool      // IsActive is false for administratively disabled accounts
	IsSuperuser       bool      // IsSuperuser grants administrative access
	IsOnboarding      bool      // IsOnboarding marks self-registered accounts pending setup
	IsEmailValidation bool      // IsEmailValidation is true once the email was confirmed
}

// AccessLevel classifies a caller for route authorization.
type AccessLevel int

const (
	Anonymous AccessLevel = iota
	Active
	ActiveSuperuser
)

// String returns a readable name for the level.
func (l AccessLevel) String() string {
	switch l {
	case Active:
		return "active"
	case ActiveSuperuser:
		return "active-superuser"
	default:
		return "anonymous"
	}
}

// AccessLevel returns the level a resolved caller holds. A nil or inactive
// user carries no authenticated level.
func (u *User) AccessLevel() AccessLevel {
	if u == nil || !u.IsActive {
		return Anonymous
	}
	if u.IsSuperuser {
		return ActiveSuperuser
	}
	return Active
}

// Satisfies reports whether the user meets the required level.
func (u *User) Satisfies(required AccessLevel) bool {
	return u.AccessLevel() >= required
}

// Patch names the columns of a user to overwrite. Nil fields keep the value
// currently stored, so concurrent patches touching different fields never
// undo each other.
type Patch struct {
	Email             *string
	HashedPassword    *string
	FullName          *string
	IsActive          *bool
	IsSuperuser       *bool
	IsOnboarding      *bool
	IsEmailValidation *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.HashedPassword == nil && p.FullName == nil &&
		p.IsActive == nil && p.IsSuperuser == nil && p.IsOnboarding == nil && p.IsEmailValidation == nil
}

// Apply returns a copy of u with the patched fields overwritten.
func (p Patch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.HashedPassword != nil {
		u.HashedPassword = *p.HashedPassword
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.IsSuperuser != nil {
		u.IsSuperuser = *p.IsSuperuser
	}
	if p.IsOnboarding != nil {
		u.IsOnboarding = *p.IsOnboarding
	}
	if p.IsEmailValidation != nil {
		u.IsEmailValidation = *p.IsEmailValidation
	}
	return u
}
