package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/token"
)

const (
	whiteSecret = "white-secret"
	blackSecret = "black-secret"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(1, chessrules.NewEngine(), token.Hash(whiteSecret), token.Hash(blackSecret), t0)
}

func play(t *testing.T, s *Session, actor string, moves ...string) View {
	t.Helper()
	var v View
	for i, mv := range moves {
		var err error
		v, err = s.MakeMove(actor, mv, t0.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err, "move %d %q", i+1, mv)
	}
	return v
}

func TestJoinClaimsWhiteThenBlack(t *testing.T) {
	s := newTestSession(t)

	v, err := s.Join(whiteSecret, "alice", t0.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, v.White)
	assert.Equal(t, "alice", *v.White)
	assert.Nil(t, v.Black)
	assert.Equal(t, t0.Add(time.Minute), v.UpdatedAt)
	assert.Equal(t, RoleWhite, s.RoleOf("alice"))

	_, err = s.Join(whiteSecret, "bob", t0)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Join(blackSecret, "alice", t0)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	v, err = s.Join(blackSecret, "bob", t0)
	require.NoError(t, err)
	assert.Equal(t, "bob", *v.Black)
	assert.Equal(t, RoleBlack, s.RoleOf("bob"))
	assert.Equal(t, RoleSpectator, s.RoleOf("carol"))

	_, err = s.Join(blackSecret, "carol", t0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJoinRejectsBadInput(t *testing.T) {
	s := newTestSession(t)
	before := s.View()

	_, err := s.Join(whiteSecret, "", t0)
	assert.ErrorIs(t, err, ErrInvalidActor)

	_, err = s.Join("guess", "mallory", t0)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Equal(t, before, s.View())
	d := s.Debug()
	assert.NotNil(t, d.WhiteHash)
	assert.NotNil(t, d.BlackHash)
}

func TestJoinBurnsDigest(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Join(whiteSecret, "alice", t0)
	require.NoError(t, err)

	d := s.Debug()
	assert.Nil(t, d.WhiteHash)
	require.NotNil(t, d.BlackHash)
	assert.Equal(t, token.Hash(blackSecret), *d.BlackHash)
	assert.Equal(t, "alice", *d.White)
}

func TestCoordinateMoveRecordsSAN(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Join(whiteSecret, "alice", t0)
	require.NoError(t, err)

	v, err := s.MakeMove("alice", "e2e4", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"e4"}, v.MovesSAN)
	assert.False(t, v.WhiteToMove)
	assert.Equal(t, t0.Add(time.Second), v.UpdatedAt)
}

func TestWrongTurnWhenSideIsClaimedBySomeoneElse(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Join(whiteSecret, "alice", t0)
	require.NoError(t, err)
	_, err = s.Join(blackSecret, "bob", t0)
	require.NoError(t, err)

	play(t, s, "alice", "e2e4")
	before := s.View()

	_, err = s.MakeMove("alice", "d2d4", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrWrongTurn)
	_, err = s.MakeMove("carol", "e7e5", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrWrongTurn)
	assert.Equal(t, before, s.View())

	v := play(t, s, "bob", "e7e5")
	assert.Equal(t, []string{"e4", "e5"}, v.MovesSAN)
}

func TestUnclaimedSideAnyoneMoves(t *testing.T) {
	s := newTestSession(t)
	v := play(t, s, "", "e4")
	v2, err := s.MakeMove("someone", "e5", t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e4"}, v.MovesSAN)
	assert.Equal(t, []string{"e4", "e5"}, v2.MovesSAN)
}

func TestFoolsMateEndsGame(t *testing.T) {
	s := newTestSession(t)
	v := play(t, s, "x", "f2f3", "e5", "g2g4", "Qh4#")

	assert.Equal(t, Checkmate(chessrules.Black), v.Status)
	assert.True(t, v.Status.Terminal())
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, v.MovesSAN)

	before := s.View()
	_, err := s.MakeMove("x", "a2a3", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrGameFinished)
	_, err = s.Resign("x", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrGameFinished)
	assert.Equal(t, before, s.View())

	// seat claims are still accepted after the game ends
	_, err = s.Join(whiteSecret, "late", t0.Add(time.Hour))
	assert.NoError(t, err)
}

func TestResign(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Resign("nobody", t0)
	assert.ErrorIs(t, err, ErrNotSeated)
	_, err = s.Resign("", t0)
	assert.ErrorIs(t, err, ErrNotSeated)
	assert.Equal(t, Ongoing(), s.Status())

	_, err = s.Join(blackSecret, "bob", t0)
	require.NoError(t, err)
	v, err := s.Resign("bob", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Resigned(chessrules.White), v.Status)
	assert.Equal(t, t0.Add(time.Minute), v.UpdatedAt)

	_, err = s.Resign("bob", t0)
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestWhiteResignationFavoursBlack(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Join(whiteSecret, "alice", t0)
	require.NoError(t, err)
	v, err := s.Resign("alice", t0)
	require.NoError(t, err)
	assert.Equal(t, chessrules.Black, v.Status.Winner)
}

func TestMoveErrorsLeaveStateUntouched(t *testing.T) {
	s := newTestSession(t)
	play(t, s, "", "e4")
	before := s.View()

	cases := map[string]error{
		"":      ErrParse,
		"   ":   ErrParse,
		"hello": ErrParse,
		"e7e4":  ErrIllegalMove,
		"e2e4":  ErrIllegalMove,
		"Ke5":   ErrIllegalMove,
		"z9z9":  ErrParse,
	}
	for text, want := range cases {
		_, err := s.MakeMove("", text, t0.Add(time.Hour))
		assert.ErrorIs(t, err, want, "input %q", text)
	}
	assert.Equal(t, before, s.View())
}

func TestUppercaseCoordinate(t *testing.T) {
	s := newTestSession(t)
	v := play(t, s, "", "G1F3")
	assert.Equal(t, []string{"Nf3"}, v.MovesSAN)
}

func TestPromotion(t *testing.T) {
	line := []string{"a4", "b5", "axb5", "a6", "bxa6", "Bb7", "axb7", "Nc6"}

	s := newTestSession(t)
	play(t, s, "", line...)
	v := play(t, s, "", "b7a8")
	assert.Equal(t, "bxa8=Q", v.MovesSAN[len(v.MovesSAN)-1])

	s = newTestSession(t)
	play(t, s, "", line...)
	v = play(t, s, "", "b7b8n")
	assert.Equal(t, "b8=N", v.MovesSAN[len(v.MovesSAN)-1])

	s = newTestSession(t)
	play(t, s, "", line...)
	_, err := s.MakeMove("", "b7a8k", t0)
	assert.ErrorIs(t, err, ErrParse)
	v = play(t, s, "", "bxa8=R")
	assert.Equal(t, "bxa8=R", v.MovesSAN[len(v.MovesSAN)-1])
}

func TestHistoryMatchesIndependentReplay(t *testing.T) {
	e := chessrules.NewEngine()
	s := newTestSession(t)
	pos := e.Initial()
	n := 0
	for i := 0; i < 40 && !s.Status().Terminal(); i++ {
		legal := e.LegalMoves(pos)
		mv := legal[(i*7)%len(legal)]
		_, err := s.MakeMove("", mv.UCI(), t0)
		require.NoError(t, err)
		pos, err = e.Apply(pos, mv)
		require.NoError(t, err)
		n++
	}
	v := s.View()
	assert.Len(t, v.MovesSAN, n)
	assert.Equal(t, e.FEN(pos), v.FEN)

	replayed, err := chessrules.Replay(e, v.MovesSAN)
	require.NoError(t, err)
	assert.Equal(t, v.FEN, e.FEN(replayed))
}

func TestEvaluate(t *testing.T) {
	e := chessrules.NewEngine()
	assert.Equal(t, Ongoing(), Evaluate(e, e.Initial(), chessrules.Black))

	// shortest known stalemate
	pos, err := chessrules.Replay(e, []string{
		"e3", "a5", "Qh5", "Ra6", "Qxa5", "h5", "h4", "Rah6", "Qxc7", "f6",
		"Qxd7+", "Kf7", "Qxb7", "Qd3", "Qxb8", "Qh7", "Qxc8", "Kg6", "Qe6",
	})
	require.NoError(t, err)
	assert.Equal(t, Stalemate(), Evaluate(e, pos, chessrules.White))
	assert.True(t, Evaluate(e, pos, chessrules.White).Terminal())
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Join(whiteSecret, "alice", t0)
	require.NoError(t, err)
	play(t, s, "alice", "e4")
	play(t, s, "", "c5")

	restored, err := Restore(chessrules.NewEngine(), s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, s.View(), restored.View())
	assert.Equal(t, s.Debug(), restored.Debug())

	_, err = restored.Join(blackSecret, "bob", t0)
	require.NoError(t, err)
	v := play(t, restored, "alice", "Nf3")
	assert.Equal(t, []string{"e4", "c5", "Nf3"}, v.MovesSAN)
	require.NotNil(t, v.Opening)
	assert.Equal(t, "B", v.Opening.Code[:1])
}

func TestOpeningComputedOncePerMove(t *testing.T) {
	calls := 0
	orig := lookupOpening
	lookupOpening = func(h []string) (chessrules.Opening, bool) {
		calls++
		return orig(h)
	}
	t.Cleanup(func() { lookupOpening = orig })

	s := newTestSession(t)
	play(t, s, "", "e4")
	play(t, s, "", "c5")
	require.Equal(t, 2, calls)

	for range 10 {
		v := s.View()
		require.NotNil(t, v.Opening)
		assert.Equal(t, "B", v.Opening.Code[:1])
	}
	assert.Equal(t, 2, calls)

	// views carry a copy
	v := s.View()
	v.Opening.Code = "Z99"
	assert.NotEqual(t, "Z99", s.View().Opening.Code)

	_, err := s.MakeMove("", "e9e9", t0)
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	restored, err := Restore(chessrules.NewEngine(), s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, s.View().Opening, restored.View().Opening)
}

func TestRestoreRejectsBrokenSnapshots(t *testing.T) {
	e := chessrules.NewEngine()
	good := newTestSession(t).Snapshot()

	bad := good
	bad.MovesSAN = []string{"e4", "e4"}
	_, err := Restore(e, bad)
	assert.Error(t, err)

	bad = good
	bad.White = SeatRecord{}
	_, err = Restore(e, bad)
	assert.Error(t, err)

	bad = good
	bad.ID = 0
	_, err = Restore(e, bad)
	assert.Error(t, err)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "WRONG_TURN", Code(fmt.Errorf("%w: white to move", ErrWrongTurn)))
	assert.Equal(t, "INVALID_TOKEN", Code(token.ErrInvalidToken))
	assert.Equal(t, "INTERNAL", Code(errors.New("boom")))
}
