package models

// Principal is an authenticated caller as resolved from a bearer token.
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}
