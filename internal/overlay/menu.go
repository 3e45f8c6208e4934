// Package overlay tracks which per-item action menu is open. State is explicit:
// a menu closes only through Toggle or Dismiss.
package overlay

import (
	"fmt"
	"sync"
)

// Trigger is an event that dismisses the open menu
type Trigger string

const (
	TriggerOutside Trigger = "outside" // click outside the menu
	TriggerScroll  Trigger = "scroll"
	TriggerEscape  Trigger = "escape"
)

// ParseTrigger validates a dismiss trigger
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(s); t {
	case TriggerOutside, TriggerScroll, TriggerEscape:
		return t, nil
	}
	return "", fmt.Errorf("unknown dismiss trigger %q", s)
}

// State is the menu state as rendered by the client
type State struct {
	OpenID string `json:"openId,omitempty"`
	Open   bool   `json:"open"`
}

// Menu holds at most one open menu. Safe for concurrent use.
type Menu struct {
	mu     sync.Mutex
	openID string
}

// NewMenu returns a menu with nothing open
func NewMenu() *Menu {
	return &Menu{}
}

// Toggle opens the menu of id, or closes it if it is already open.
// Opening one menu closes any other.
func (m *Menu) Toggle(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openID == id {
		m.openID = ""
	} else {
		m.openID = id
	}
	return m.stateLocked()
}

// Dismiss closes whatever menu is open
func (m *Menu) Dismiss(Trigger) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openID = ""
	return m.stateLocked()
}

// Close closes the menu of id if it is the open one
func (m *Menu) Close(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openID == id {
		m.openID = ""
	}
	return m.stateLocked()
}

// State returns the current state
func (m *Menu) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// IsOpen reports whether the menu of id is open
func (m *Menu) IsOpen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id != "" && m.openID == id
}

func (m *Menu) stateLocked() State {
	return State{OpenID: m.openID, Open: m.openID != ""}
}
