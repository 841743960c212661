package models

import (
	"fmt"

	"github.com/google/uuid"
)

// PlayerID identifies a player across the draft room. It is parsed once at
// the request boundary and passed around typed from then on.
type PlayerID uuid.UUID

var NilPlayerID PlayerID

func ParsePlayerID(s string) (PlayerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilPlayerID, fmt.Errorf("invalid player id %q: %w", s, err)
	}
	return PlayerID(id), nil
}

func (p PlayerID) UUID() uuid.UUID { return uuid.UUID(p) }

func (p PlayerID) String() string { return uuid.UUID(p).String() }

func (p PlayerID) IsNil() bool { return p == NilPlayerID }

func (p PlayerID) MarshalText() ([]byte, error) {
	return uuid.UUID(p).MarshalText()
}

func (p *PlayerID) UnmarshalText(b []byte) error {
	id, err := ParsePlayerID(string(b))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// Player represents a sports player in the draft pool.
type Player struct {
	ID       PlayerID `json:"id"`
	SportID  string   `json:"sport_id"`
	FullName string   `json:"full_name"`
	Position string   `json:"position"`
	// Rank orders the fallback pool; lower is better, nil ranks last.
	Rank *int `json:"rank,omitempty"`
}
