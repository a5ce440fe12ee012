package imap

import (
	"ceres/auth"
)

// Constants

// Integer counter for IMAP states.
const (
	StateNotAuthenticated State = iota
	StateAuthenticatingPlain
	StateAuthenticated
	StateMailboxSelected
)

// Structs

// State represents the integer value associated with one
// of the implemented IMAP states a connection can be in.
type State int

// Session contains all elements needed for tracking one
// client connection through the IMAP state machine. It is
// owned by the connection's handler goroutine; the registry
// only holds a reference for cross-cutting operations.
type Session struct {
	State           State
	Token           string
	ClientAddr      string
	PendingAuthTag  string
	User            *auth.User
	SelectedMailbox string
}

// Functions

// Authenticated reports whether the session reached a
// state in which mailbox commands may be executed. The
// user identity is set if and only if this returns true.
func (s *Session) Authenticated() bool {
	return (s.State == StateAuthenticated) || (s.State == StateMailboxSelected)
}

// BeginAuthPlain puts the session into the intermediate
// authenticating state, remembering the tag of the
// AUTHENTICATE request so that the final tagged answer
// can be correlated after the continuation round trip.
func (s *Session) BeginAuthPlain(tag string) {
	s.State = StateAuthenticatingPlain
	s.PendingAuthTag = tag
}

// FinishAuth transitions the session into authenticated
// state for the supplied user. The pending tag is cleared
// in both the success and the failure path so a session
// can never be stuck mid-authentication.
func (s *Session) FinishAuth(user *auth.User) {
	s.State = StateAuthenticated
	s.PendingAuthTag = ""
	s.User = user
}

// FailAuth resets the session to unauthenticated state
// after a rejected or malformed authentication attempt.
func (s *Session) FailAuth() {
	s.State = StateNotAuthenticated
	s.PendingAuthTag = ""
	s.User = nil
}

// SelectMailbox marks the supplied mailbox as the one
// the connection operates on.
func (s *Session) SelectMailbox(name string) {
	s.State = StateMailboxSelected
	s.SelectedMailbox = name
}

// CloseMailbox returns the session from selected state
// back to plain authenticated state.
func (s *Session) CloseMailbox() {
	s.State = StateAuthenticated
	s.SelectedMailbox = ""
}
