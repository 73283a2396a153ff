package session

// User is a resolved identity attached to a logged in Session.
// It is created by the credential collaborator after a successful check and
// never changes afterwards.
type User struct {
	username string
}

// NewUser returns a User for the given username.
func NewUser(username string) *User { return &User{username: username} }

// Username returns the name the user logged in with.
func (u *User) Username() string {
	if u == nil {
		return ""
	}
	return u.username
}

func (u *User) String() string { return u.Username() }
