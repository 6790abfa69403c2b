package chat

import (
	"net/url"
	"strings"
)

// Session is the authenticated identity supplied by the auth collaborator.
// Email must be present for any write operation.
type Session struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Valid reports whether the session can author writes.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Email) != ""
}

// Author converts the session into the message user identity, falling back
// to a generated avatar when the provider supplied none.
func (s Session) Author() User {
	avatar := s.Image
	if avatar == "" {
		avatar = "https://ui-avatars.com/api/?name=" + url.QueryEscape(s.Name)
	}
	return User{ID: s.Email, Name: s.Name, AvatarURL: avatar}
}
