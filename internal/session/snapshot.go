package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/token"
)

// SeatRecord is the persisted form of a seat: exactly one field is set.
type SeatRecord struct {
	Occupant string `json:"occupant,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

// Snapshot is the persisted form of a session. Positions are rebuilt by replaying MovesSAN.
type Snapshot struct {
	ID        uint64     `json:"id"`
	MovesSAN  []string   `json:"moves_san"`
	White     SeatRecord `json:"white"`
	Black     SeatRecord `json:"black"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.id,
		MovesSAN:  s.History(),
		White:     seatRecord(s.white),
		Black:     seatRecord(s.black),
		Status:    s.status,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(rules chessrules.Rules, snap Snapshot) (*Session, error) {
	if snap.ID == 0 {
		return nil, errors.New("snapshot without id")
	}
	pos, err := chessrules.Replay(rules, snap.MovesSAN)
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", snap.ID, err)
	}
	white, err := seatFromRecord(snap.White)
	if err != nil {
		return nil, fmt.Errorf("game %d white seat: %w", snap.ID, err)
	}
	black, err := seatFromRecord(snap.Black)
	if err != nil {
		return nil, fmt.Errorf("game %d black seat: %w", snap.ID, err)
	}
	status := snap.Status
	if status.Kind == "" {
		status = Evaluate(rules, pos, rules.SideToMove(pos).Other())
	}
	history := append([]string{}, snap.MovesSAN...)
	restored := &Session{
		id:        snap.ID,
		rules:     rules,
		resolver:  NewResolver(rules),
		position:  pos,
		history:   history,
		white:     white,
		black:     black,
		status:    status,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}
	restored.classify()
	return restored, nil
}

func seatRecord(seat token.Seat) SeatRecord {
	if who, ok := seat.Occupant(); ok {
		return SeatRecord{Occupant: who}
	}
	if d, ok := seat.Digest(); ok {
		return SeatRecord{Digest: d.String()}
	}
	return SeatRecord{}
}

func seatFromRecord(r SeatRecord) (token.Seat, error) {
	switch {
	case r.Occupant != "":
		return token.Claimed(r.Occupant), nil
	case r.Digest != "":
		d, err := token.ParseDigest(r.Digest)
		if err != nil {
			return token.Seat{}, err
		}
		return token.Unclaimed(d), nil
	default:
		return token.Seat{}, errors.New("seat record is empty")
	}
}
