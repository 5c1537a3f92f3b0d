package model

import "time"

// Role names stored in users.role and in the JWT "role" claim.
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted here because these structs
// are used by the repository layer; handlers define their own response
// types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – BUYER, SELLER or ADMIN.
//	IsApproved   – sellers may only list items once approved.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsApproved   bool      // users.is_approved
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Identity returns the engine's view of u.
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Role: u.Role, Approved: u.IsApproved}
}

// Identity is the authenticated caller as seen by the marketplace engine.
// It is produced by the identity provider (JWT middleware plus a user
// lookup) and never trusted for anything else.
type Identity struct {
	UserID   uint64
	Role     string
	Approved bool
}

// IsAdmin reports whether the caller has the administrator role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanSell reports whether the caller's role may create listings.
func (i Identity) CanSell() bool { return i.Role == RoleSeller || i.Role == RoleAdmin }

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
