package session

import (
	"github.com/jrsteele09/appo-client/users"
)

// Session is the client-side view of who is signed in.
//
// Authenticated implies User is set and AccessToken is not empty. The zero
// value is the signed-out session.
type Session struct {
	Authenticated bool        `json:"isAuthenticated"`
	User          *users.User `json:"user"`
	AccessToken   string      `json:"accessToken,omitempty"`
	RefreshToken  string      `json:"refreshToken,omitempty"`
	Loading       bool        `json:"isLoading"`
	Error         string      `json:"error,omitempty"`
}

// Empty returns the signed-out session.
func Empty() Session {
	return Session{}
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (s Session) valid() bool {
	return !s.Authenticated || (s.User != nil && s.AccessToken != "")
}
