package domain

// User is the in-memory projection of the authenticated identity.
// It is never persisted; only the bearer token is.
type User struct {
	ID      string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// HasPicture reports whether the identity provider supplied an avatar URL.
func (u *User) HasPicture() bool {
	return u != nil && u.Picture != ""
}

// DisplayName returns the name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
