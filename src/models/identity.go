package models

// Identity is a verified caller, produced by the auth middleware.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
