package model

import "time"

// User is a registered student.
type User struct {
	ID           string             `db:"id" json:"id"`
	Email        string             `db:"email" json:"email"`
	PasswordHash string             `db:"password_hash" json:"-"`
	Name         string             `db:"name" json:"name"`
	Role         Role               `db:"role" json:"role"`
	Verification VerificationStatus `db:"verification_status" json:"verification_status"`
	VerifiedAt   *time.Time         `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}

func (u User) Verified() bool {
	return u.Verification == VerificationVerified
}
