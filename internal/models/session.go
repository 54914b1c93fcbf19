package models

import "strings"

// Session identifies the authenticated user driving a capture session.
type Session struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Label is the name reports are attributed to and history is keyed on:
// the display name when present, otherwise the email.
func (s Session) Label() string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	return s.Email
}

// Valid reports whether the session carries a user.
func (s Session) Valid() bool {
	return s.UserID != ""
}
