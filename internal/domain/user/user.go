package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON

	// Both set on a forgot-password request, both cleared on a successful
	// reset. Never serialized.
	ResetTokenHash *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the client-facing shape of a user record.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email}
}
