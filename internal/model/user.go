package model

import "github.com/google/uuid"

// Identity is the authenticated caller attached to the request scope by
// the Authenticator. It is read-only to the core: the external
// identity provider (Supabase) owns user creation.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Profile is the quota ledger's view of a user: premium status and
// remaining free generations. FreeGenerationsRemaining never goes below
// zero; a premium user's counter is never decremented.
type Profile struct {
	UserID                   uuid.UUID `json:"userId" db:"user_id"`
	IsPremium                bool      `json:"isPremium" db:"is_premium"`
	FreeGenerationsRemaining int       `json:"freeGenerationsRemaining" db:"free_generations_remaining"`
}
