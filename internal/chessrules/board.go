package chessrules

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// Square is a board square in algebraic form ("a1".."h8") with 0-based file/rank.
type Square struct {
	File int
	Rank int
}

// Piece is a piece letter: uppercase for white, lowercase for black (FEN convention).
type Piece byte

// BoardFromFEN returns the occupied squares of a FEN position.
func BoardFromFEN(fen string) (map[Square]Piece, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	board := nchess.NewGame(opt).Position().Board()
	out := make(map[Square]Piece, 32)
	for sq, pc := range board.SquareMap() {
		if pc == nchess.NoPiece {
			continue
		}
		out[Square{File: int(sq.File()), Rank: int(sq.Rank())}] = pieceLetter(pc)
	}
	return out, nil
}

func pieceLetter(p nchess.Piece) Piece {
	var c byte
	switch p.Type() {
	case nchess.King:
		c = 'k'
	case nchess.Queen:
		c = 'q'
	case nchess.Rook:
		c = 'r'
	case nchess.Bishop:
		c = 'b'
	case nchess.Knight:
		c = 'n'
	default:
		c = 'p'
	}
	if p.Color() == nchess.White {
		c -= 'a' - 'A'
	}
	return Piece(c)
}

// ParseSquare reads "e4"-style coordinates.
func ParseSquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, false
	}
	return Square{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}, true
}

func (s Square) String() string {
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

// IsWhite reports whether the letter is an uppercase (white) piece.
func (p Piece) IsWhite() bool { return p >= 'A' && p <= 'Z' }
