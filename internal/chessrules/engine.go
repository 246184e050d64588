package chessrules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Promotion is the lowercase piece letter a pawn promotes to, or NoPromotion.
type Promotion byte

const (
	NoPromotion Promotion = 0
	PromoQueen  Promotion = 'q'
	PromoRook   Promotion = 'r'
	PromoBishop Promotion = 'b'
	PromoKnight Promotion = 'n'
)

var (
	ErrIllegal  = errors.New("move is not legal in this position")
	ErrNotation = errors.New("notation not recognised")
)

// Position is an immutable board state. Apply never touches its input.
type Position struct {
	pos     *nchess.Position
	inCheck bool
}

// Valid reports whether the position came from an engine.
func (p Position) Valid() bool { return p.pos != nil }

// Move is a legal move in the position it was generated from.
type Move struct {
	From      string
	To        string
	Promotion Promotion

	raw *nchess.Move
}

// UCI renders the move in coordinate form, e.g. e7e8q.
func (m Move) UCI() string {
	s := m.From + m.To
	if m.Promotion != NoPromotion {
		s += string(rune(m.Promotion))
	}
	return s
}

func (m Move) same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

// Rules is the contract the session layer consumes from a chess rules engine.
type Rules interface {
	Initial() Position
	LegalMoves(p Position) []Move
	Apply(p Position, m Move) (Position, error)
	Notation(p Position, m Move) string
	ParseNotation(p Position, s string) (Move, error)
	SideToMove(p Position) Color
	InCheck(p Position) bool
	FEN(p Position) string
}

// Engine implements Rules on top of corentings/chess.
type Engine struct{}

var _ Rules = Engine{}

func NewEngine() Engine { return Engine{} }

func (Engine) Initial() Position {
	return Position{pos: nchess.NewGame().Position()}
}

func (Engine) LegalMoves(p Position) []Move {
	if p.pos == nil {
		return nil
	}
	valid := p.pos.ValidMoves()
	out := make([]Move, 0, len(valid))
	for i := range valid {
		mv := valid[i]
		out = append(out, wrapMove(&mv))
	}
	return out
}

func (e Engine) Apply(p Position, m Move) (Position, error) {
	legal, ok := e.findLegal(p, m)
	if !ok {
		return Position{}, fmt.Errorf("%w: %s", ErrIllegal, m.UCI())
	}
	next := p.pos.Update(legal.raw)
	return Position{pos: next, inCheck: legal.raw.HasTag(nchess.Check)}, nil
}

func (e Engine) Notation(p Position, m Move) string {
	legal, ok := e.findLegal(p, m)
	if !ok {
		return ""
	}
	return nchess.AlgebraicNotation{}.Encode(p.pos, legal.raw)
}

// ParseNotation decodes standard algebraic notation against the legal moves of p.
func (e Engine) ParseNotation(p Position, s string) (Move, error) {
	if p.pos == nil {
		return Move{}, ErrNotation
	}
	text := strings.TrimSpace(s)
	if text == "" {
		return Move{}, ErrNotation
	}
	decoded, err := nchess.AlgebraicNotation{}.Decode(p.pos, text)
	if err != nil || decoded == nil {
		return Move{}, fmt.Errorf("%w: %q", ErrNotation, text)
	}
	legal, ok := e.findLegal(p, wrapMove(decoded))
	if !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrIllegal, text)
	}
	return legal, nil
}

func (Engine) SideToMove(p Position) Color {
	if p.pos == nil || p.pos.Turn() == nchess.White {
		return White
	}
	return Black
}

func (Engine) InCheck(p Position) bool { return p.inCheck }

func (Engine) FEN(p Position) string {
	if p.pos == nil {
		return ""
	}
	return p.pos.String()
}

// Replay rebuilds a position from the initial one by applying SAN moves in order.
func Replay(r Rules, history []string) (Position, error) {
	pos := r.Initial()
	for i, san := range history {
		mv, err := r.ParseNotation(pos, san)
		if err != nil {
			return Position{}, fmt.Errorf("replay ply %d (%s): %w", i+1, san, err)
		}
		if pos, err = r.Apply(pos, mv); err != nil {
			return Position{}, fmt.Errorf("replay ply %d (%s): %w", i+1, san, err)
		}
	}
	return pos, nil
}

func (e Engine) findLegal(p Position, m Move) (Move, bool) {
	for _, lm := range e.LegalMoves(p) {
		if lm.same(m) {
			return lm, true
		}
	}
	return Move{}, false
}

func wrapMove(m *nchess.Move) Move {
	return Move{
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: promotionOf(m.Promo()),
		raw:       m,
	}
}

func promotionOf(pt nchess.PieceType) Promotion {
	switch pt {
	case nchess.Queen:
		return PromoQueen
	case nchess.Rook:
		return PromoRook
	case nchess.Bishop:
		return PromoBishop
	case nchess.Knight:
		return PromoKnight
	default:
		return NoPromotion
	}
}

// ParsePromotion maps a piece letter (any case) to a Promotion.
func ParsePromotion(r byte) (Promotion, bool) {
	switch r {
	case 'q', 'Q':
		return PromoQueen, true
	case 'r', 'R':
		return PromoRook, true
	case 'b', 'B':
		return PromoBishop, true
	case 'n', 'N':
		return PromoKnight, true
	default:
		return NoPromotion, false
	}
}
