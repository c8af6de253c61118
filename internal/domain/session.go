package domain

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the live authentication state. Token and User are set and
// cleared together; a session with only one of them is invalid.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s Session) Live() bool {
	return s.Token != ""
}

// Valid reports whether the token/user pairing invariant holds.
func (s Session) Valid() bool {
	return (s.Token == "") == (s.User == User{})
}
