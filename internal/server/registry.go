package server

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Registry errors.
var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrAlreadyJoined     = errors.New("connection already joined")
)

// RosterChange describes the effect of a join or leave on the roster.
type RosterChange struct {
	Name string
	// Roster is a snapshot taken after the change.
	Roster []string
	// Entered is set when Name was added to the roster by this join.
	Entered bool
	// Departed is set when Name was removed from the roster by this leave.
	Departed bool
}

// Registry tracks which display name each live connection is bound to and
// derives the roster from it. A name held by several connections appears once,
// at the position of its first join, and leaves the roster with its last
// holder.
//
// Registry is not safe for concurrent use; the hub goroutine owns it.
type Registry struct {
	names   map[string]string // connection id -> bound name, "" if not joined
	holders map[string]int    // name -> number of connections bound to it
	roster  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:   make(map[string]string),
		holders: make(map[string]int),
	}
}

// Register creates a connection with no display name and returns its id.
func (r *Registry) Register() string {
	id := uuid.NewString()
	r.names[id] = ""
	return id
}

// Join binds name to the connection.
func (r *Registry) Join(id, name string) (RosterChange, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RosterChange{}, ErrEmptyName
	}

	bound, ok := r.names[id]
	if !ok {
		return RosterChange{}, ErrUnknownConnection
	}
	if bound != "" {
		return RosterChange{}, ErrAlreadyJoined
	}

	r.names[id] = name
	r.holders[name]++

	change := RosterChange{Name: name}
	if r.holders[name] == 1 {
		r.roster = append(r.roster, name)
		change.Entered = true
	}
	change.Roster = r.Roster()
	return change, nil
}

// Leave unbinds the connection's name while keeping the connection
// registered. It reports false if the connection never joined.
func (r *Registry) Leave(id string) (RosterChange, bool) {
	name, ok := r.names[id]
	if !ok || name == "" {
		return RosterChange{}, false
	}

	r.names[id] = ""
	return r.release(name), true
}

// Remove forgets the connection entirely. It reports false if the connection
// was never joined; the returned change is then empty.
func (r *Registry) Remove(id string) (RosterChange, bool) {
	name, ok := r.names[id]
	if !ok {
		return RosterChange{}, false
	}

	delete(r.names, id)
	if name == "" {
		return RosterChange{}, false
	}
	return r.release(name), true
}

func (r *Registry) release(name string) RosterChange {
	change := RosterChange{Name: name}

	r.holders[name]--
	if r.holders[name] <= 0 {
		delete(r.holders, name)
		for i, n := range r.roster {
			if n == name {
				r.roster = append(r.roster[:i], r.roster[i+1:]...)
				break
			}
		}
		change.Departed = true
	}

	change.Roster = r.Roster()
	return change
}

// Name returns the name bound to the connection, if any.
func (r *Registry) Name(id string) (string, bool) {
	name, ok := r.names[id]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Roster returns a copy of the online names in join order.
func (r *Registry) Roster() []string {
	return append(make([]string, 0, len(r.roster)), r.roster...)
}

// Len returns the number of registered connections, joined or not.
func (r *Registry) Len() int {
	return len(r.names)
}
