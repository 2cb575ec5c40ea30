package auth

import "errors"

// ErrNoSession is returned when a request carries no authenticated identity.
var ErrNoSession = errors.New("no authenticated session")

// Session is the authenticated identity of a request. It is passed explicitly
// to every user-scoped operation.
type Session struct {
	UserID uint
}

// Valid reports whether the session identifies a user.
func (s Session) Valid() bool {
	return s.UserID != 0
}
