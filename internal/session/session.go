// Package session holds the state machine of a single two-player game:
// seat claims, turn enforcement, move application and status.
//
// Every mutating method validates all preconditions first and only then
// commits; on error the session is unchanged.
package session

import (
	"fmt"
	"time"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/token"
)

// Session is one game. It is not safe for concurrent use; the registry serialises access.
type Session struct {
	id       uint64
	rules    chessrules.Rules
	resolver *Resolver

	position  chessrules.Position
	history   []string
	white     token.Seat
	black     token.Seat
	status    Status
	opening   *chessrules.Opening
	createdAt time.Time
	updatedAt time.Time
}

var lookupOpening = chessrules.LookupOpening

// classify recomputes the cached opening; called whenever history changes.
func (s *Session) classify() {
	s.opening = nil
	if o, ok := lookupOpening(s.history); ok {
		s.opening = &o
	}
}

// New starts a game from the initial position with both seats unclaimed.
func New(id uint64, rules chessrules.Rules, whiteHash, blackHash token.Digest, now time.Time) *Session {
	return &Session{
		id:        id,
		rules:     rules,
		resolver:  NewResolver(rules),
		position:  rules.Initial(),
		history:   []string{},
		white:     token.Unclaimed(whiteHash),
		black:     token.Unclaimed(blackHash),
		status:    Ongoing(),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() uint64 { return s.id }
func (s *Session) Status() Status { return s.status }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// History returns a copy of the SAN move list.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Join claims the white seat, then the black one, with a one-time secret.
// Seats may be claimed after the game has finished.
func (s *Session) Join(secret, actor string, now time.Time) (View, error) {
	if actor == "" {
		return View{}, ErrInvalidActor
	}
	if s.RoleOf(actor) != RoleSpectator {
		return View{}, ErrAlreadySeated
	}
	if seat, err := s.white.Claim(secret, actor); err == nil {
		s.white = seat
		s.updatedAt = now
		return s.View(), nil
	}
	if seat, err := s.black.Claim(secret, actor); err == nil {
		s.black = seat
		s.updatedAt = now
		return s.View(), nil
	}
	return View{}, ErrInvalidToken
}

// MakeMove applies notation for the side to move. A side whose seat is still
// unclaimed may be moved by any actor.
func (s *Session) MakeMove(actor, notation string, now time.Time) (View, error) {
	if s.status.Terminal() {
		return View{}, ErrGameFinished
	}
	mover := s.rules.SideToMove(s.position)
	if occupant, ok := s.seat(mover).Occupant(); ok && occupant != actor {
		return View{}, fmt.Errorf("%w: %s to move", ErrWrongTurn, mover)
	}

	mv, err := s.resolver.Resolve(s.position, notation)
	if err != nil {
		return View{}, err
	}
	san := s.rules.Notation(s.position, mv)
	if san == "" {
		return View{}, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
	}
	next, err := s.rules.Apply(s.position, mv)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	s.position = next
	s.history = append(s.history, san)
	s.classify()
	s.status = Evaluate(s.rules, next, mover)
	s.updatedAt = now
	return s.View(), nil
}

// Resign ends the game in favour of the other side.
func (s *Session) Resign(actor string, now time.Time) (View, error) {
	if s.status.Terminal() {
		return View{}, ErrGameFinished
	}
	var winner chessrules.Color
	switch s.RoleOf(actor) {
	case RoleWhite:
		winner = chessrules.Black
	case RoleBlack:
		winner = chessrules.White
	default:
		return View{}, ErrNotSeated
	}
	s.status = Resigned(winner)
	s.updatedAt = now
	return s.View(), nil
}

// RoleOf compares actor against the seat occupants.
func (s *Session) RoleOf(actor string) Role {
	if actor == "" {
		return RoleSpectator
	}
	if who, ok := s.white.Occupant(); ok && who == actor {
		return RoleWhite
	}
	if who, ok := s.black.Occupant(); ok && who == actor {
		return RoleBlack
	}
	return RoleSpectator
}

func (s *Session) seat(c chessrules.Color) token.Seat {
	if c == chessrules.White {
		return s.white
	}
	return s.black
}
