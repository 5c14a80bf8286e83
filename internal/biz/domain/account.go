package domain

import "time"

// Account represents a phone-linked Telegram account and its stored credentials
type Account struct {
	Phone       string    // Phone number in international format, primary key
	APIID       int       // Telegram application ID
	APIHash     string    // Telegram application hash
	SessionData []byte    // Serialized MTProto session, empty until first login
	Verified    bool      // True once a code verification has succeeded
	LastAuthAt  time.Time // Time of the last successful (re)authentication
}

// HasSession reports whether the account ever completed a login
func (a *Account) HasSession() bool {
	return a.Verified && len(a.SessionData) > 0
}

// AccountUpdate is a partial update applied to a stored account.
// Nil fields are left untouched.
type AccountUpdate struct {
	SessionData *[]byte
	Verified    *bool
	LastAuthAt  *time.Time
}
