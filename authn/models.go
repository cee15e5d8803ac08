package authn

import "time"

// User is a registered speed-dating account. Profile facts consumed by the
// Compatibility Filter (gender, age, cities, preferences) live in the
// profile collaborator, not here — authn only owns the credential and
// identity surface.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest is the input to Service.Register.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest is the input to Service.Login.
type LoginRequest struct {
	Email    string
	Password string
}
