package chessrules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestInitialPosition(t *testing.T) {
	e := NewEngine()
	p := e.Initial()
	require.True(t, p.Valid())
	assert.Equal(t, startFEN, e.FEN(p))
	assert.Equal(t, White, e.SideToMove(p))
	assert.False(t, e.InCheck(p))
	assert.Len(t, e.LegalMoves(p), 20)
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	e := NewEngine()
	p := e.Initial()
	mv, err := e.ParseNotation(p, "e4")
	require.NoError(t, err)
	assert.Equal(t, "e2", mv.From)
	assert.Equal(t, "e4", mv.To)

	next, err := e.Apply(p, mv)
	require.NoError(t, err)
	assert.Equal(t, startFEN, e.FEN(p))
	assert.True(t, strings.HasPrefix(e.FEN(next), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"))
	assert.Equal(t, Black, e.SideToMove(next))
}

func TestNotationAndParse(t *testing.T) {
	e := NewEngine()
	p := e.Initial()
	for _, mv := range e.LegalMoves(p) {
		if mv.UCI() == "g1f3" {
			assert.Equal(t, "Nf3", e.Notation(p, mv))
		}
	}

	_, err := e.ParseNotation(p, "Nf6")
	require.Error(t, err)

	_, err = e.ParseNotation(p, "   ")
	assert.ErrorIs(t, err, ErrNotation)
}

func TestApplyRejectsIllegal(t *testing.T) {
	e := NewEngine()
	_, err := e.Apply(e.Initial(), Move{From: "e2", To: "e5"})
	assert.ErrorIs(t, err, ErrIllegal)
}

func TestReplayFoolsMate(t *testing.T) {
	e := NewEngine()
	p, err := Replay(e, []string{"f3", "e5", "g4", "Qh4#"})
	require.NoError(t, err)
	assert.True(t, e.InCheck(p))
	assert.Empty(t, e.LegalMoves(p))
	assert.Equal(t, White, e.SideToMove(p))
}

func TestReplayReportsBadPly(t *testing.T) {
	_, err := Replay(NewEngine(), []string{"e4", "e4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ply 2")
}

func TestParsePromotion(t *testing.T) {
	for in, want := range map[byte]Promotion{'q': PromoQueen, 'R': PromoRook, 'b': PromoBishop, 'N': PromoKnight} {
		got, ok := ParsePromotion(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParsePromotion('k')
	assert.False(t, ok)
}

func TestMoveUCI(t *testing.T) {
	assert.Equal(t, "e7e8q", Move{From: "e7", To: "e8", Promotion: PromoQueen}.UCI())
	assert.Equal(t, "e2e4", Move{From: "e2", To: "e4"}.UCI())
}

func TestLookupOpening(t *testing.T) {
	o, ok := LookupOpening([]string{"e4", "e5", "Nf3", "Nc6", "Bb5"})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(o.Code, "C"))
	assert.NotEmpty(t, o.Title)

	_, ok = LookupOpening(nil)
	assert.False(t, ok)
}

func TestBoardFromFEN(t *testing.T) {
	board, err := BoardFromFEN(startFEN)
	require.NoError(t, err)
	assert.Len(t, board, 32)
	assert.Equal(t, Piece('K'), board[Square{File: 4, Rank: 0}])
	assert.Equal(t, Piece('q'), board[Square{File: 3, Rank: 7}])

	_, err = BoardFromFEN("not a fen")
	assert.Error(t, err)
}

func TestParseSquare(t *testing.T) {
	sq, ok := ParseSquare("e4")
	require.True(t, ok)
	assert.Equal(t, Square{File: 4, Rank: 3}, sq)
	assert.Equal(t, "e4", sq.String())
	_, ok = ParseSquare("i9")
	assert.False(t, ok)
	assert.True(t, Piece('Q').IsWhite())
	assert.False(t, Piece('q').IsWhite())
}
