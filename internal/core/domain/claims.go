package domain

// Claims is the identity payload embedded in a session token. It never
// carries the password hash, and nothing in it is trusted on the way
// back in: deserialization re-resolves the username against the live
// store.
type Claims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}
