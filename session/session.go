package session

import "cafe-ordering/models"

// Credentials are re-entered when the profile menu is opened and passed to
// every profile edit.
type Credentials struct {
	Login    string
	Password string
}

// Session is everything the client remembers between choices.
type Session struct {
	// Actor is the logged in user, nil while logged out.
	Actor *models.Actor
	// Manager is set while the menu editor is open.
	Manager     *models.Actor
	Credentials *Credentials
	// OrderID is the order being edited.
	OrderID string

	stack []StateID
}

// State is the innermost open menu.
func (s Session) State() StateID {
	return s.current()
}

func (s Session) current() StateID {
	if len(s.stack) == 0 {
		return LoggedOut
	}
	return s.stack[len(s.stack)-1]
}

func (s *Session) push(id StateID) {
	s.stack = append(s.stack, id)
}

func (s *Session) pop() StateID {
	id := s.current()
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	return id
}

func (s Session) done() bool {
	return len(s.stack) == 0
}
