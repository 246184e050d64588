package chessdto

import "time"

// Status is the lifecycle state: kind is one of ONGOING, CHECKMATE, STALEMATE, DRAW, RESIGNED.
type Status struct {
	Kind   string `json:"kind"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// GameView is the public projection of a game.
type GameView struct {
	ID          uint64    `json:"id"`
	White       *string   `json:"white,omitempty"`
	Black       *string   `json:"black,omitempty"`
	FEN         string    `json:"fen"`
	MovesSAN    []string  `json:"moves_san"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	WhiteToMove bool      `json:"white_to_move"`
	Opening     *Opening  `json:"opening,omitempty"`
}

// DebugSeats is served only when debug endpoints are enabled.
type DebugSeats struct {
	ID        uint64  `json:"id"`
	White     *string `json:"white,omitempty"`
	Black     *string `json:"black,omitempty"`
	WhiteHash *string `json:"white_hash,omitempty"`
	BlackHash *string `json:"black_hash,omitempty"`
}
