package session

import "github.com/park285/chess-arbiter/internal/chessrules"

// StatusKind is the lifecycle state of a game.
type StatusKind string

const (
	StatusOngoing   StatusKind = "ONGOING"
	StatusCheckmate StatusKind = "CHECKMATE"
	StatusStalemate StatusKind = "STALEMATE"
	StatusDraw      StatusKind = "DRAW"
	StatusResigned  StatusKind = "RESIGNED"
)

// Status carries a winner for Checkmate/Resigned and a reason for Draw.
type Status struct {
	Kind   StatusKind       `json:"kind"`
	Winner chessrules.Color `json:"winner,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

func Ongoing() Status { return Status{Kind: StatusOngoing} }
func Checkmate(winner chessrules.Color) Status { return Status{Kind: StatusCheckmate, Winner: winner} }
func Stalemate() Status { return Status{Kind: StatusStalemate} }
func Resigned(winner chessrules.Color) Status { return Status{Kind: StatusResigned, Winner: winner} }
func Draw(reason string) Status { return Status{Kind: StatusDraw, Reason: reason} }

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s.Kind != StatusOngoing && s.Kind != ""
}

func (s Status) String() string {
	switch s.Kind {
	case StatusCheckmate, StatusResigned:
		return string(s.Kind) + "(" + string(s.Winner) + ")"
	case StatusDraw:
		if s.Reason != "" {
			return string(s.Kind) + "(" + s.Reason + ")"
		}
	}
	return string(s.Kind)
}

// Evaluate derives the status of pos, reached by mover's last move.
// Draw is never produced here.
func Evaluate(rules chessrules.Rules, pos chessrules.Position, mover chessrules.Color) Status {
	if len(rules.LegalMoves(pos)) > 0 {
		return Ongoing()
	}
	if rules.InCheck(pos) {
		return Checkmate(mover)
	}
	return Stalemate()
}
