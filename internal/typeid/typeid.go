// Package typeid mints and checks the prefixed ids used for sessions, websocket clients,
// operations and snapshots.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

var ErrWrongKind = errors.New("id has the wrong prefix")

// Kind is the prefix that says what an id names.
type Kind string

const (
	Session  Kind = "sess"
	Client   Kind = "client"
	Op       Kind = "op"
	Snapshot Kind = "snap"
)

// New returns a fresh, time-sortable id of kind k.
func (k Kind) New() string {
	return typeid.MustGenerate(string(k)).String()
}

// Check parses id and requires it to be of kind k.
func (k Kind) Check(id string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", id, err)
	}
	if got := parsed.Prefix(); got != string(k) {
		return fmt.Errorf("%w: %q is a %q id, want %q", ErrWrongKind, id, got, k)
	}
	return nil
}

func NewSessionID() string  { return Session.New() }
func NewClientID() string   { return Client.New() }
func NewOpID() string       { return Op.New() }
func NewSnapshotID() string { return Snapshot.New() }
