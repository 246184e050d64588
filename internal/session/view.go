package session

import (
	"time"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/token"
)

// Role of an actor relative to one game.
type Role string

const (
	RoleWhite     Role = "WHITE"
	RoleBlack     Role = "BLACK"
	RoleSpectator Role = "SPECTATOR"
)

// View is the read-only projection handed to callers. It never carries secret digests.
type View struct {
	ID          uint64              `json:"id"`
	White       *string             `json:"white,omitempty"`
	Black       *string             `json:"black,omitempty"`
	FEN         string              `json:"fen"`
	MovesSAN    []string            `json:"moves_san"`
	Status      Status              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	WhiteToMove bool                `json:"white_to_move"`
	Opening     *chessrules.Opening `json:"opening,omitempty"`
}

// Debug exposes seat occupants and remaining digests. Not for production surfaces.
type Debug struct {
	White     *string
	Black     *string
	WhiteHash *token.Digest
	BlackHash *token.Digest
}

func (s *Session) View() View {
	v := View{
		ID:          s.id,
		White:       occupantPtr(s.white),
		Black:       occupantPtr(s.black),
		FEN:         s.rules.FEN(s.position),
		MovesSAN:    s.History(),
		Status:      s.status,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		WhiteToMove: s.rules.SideToMove(s.position) == chessrules.White,
	}
	if s.opening != nil {
		o := *s.opening
		v.Opening = &o
	}
	return v
}

func (s *Session) Debug() Debug {
	return Debug{
		White:     occupantPtr(s.white),
		Black:     occupantPtr(s.black),
		WhiteHash: digestPtr(s.white),
		BlackHash: digestPtr(s.black),
	}
}

func occupantPtr(seat token.Seat) *string {
	if who, ok := seat.Occupant(); ok {
		return &who
	}
	return nil
}

func digestPtr(seat token.Seat) *token.Digest {
	if d, ok := seat.Digest(); ok {
		return &d
	}
	return nil
}
