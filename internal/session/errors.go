package session

import (
	"errors"

	"github.com/park285/chess-arbiter/internal/token"
)

var (
	ErrNotFound      = errors.New("no such game")
	ErrAlreadySeated = errors.New("actor already occupies a seat in this game")
	ErrGameFinished  = errors.New("game finished")
	ErrWrongTurn     = errors.New("not your turn")
	ErrNotSeated     = errors.New("actor is not seated")
	ErrIllegalMove   = errors.New("illegal move")
	ErrParse         = errors.New("move must be SAN (e.g. 'e4') or coordinate ('e2e4'/'e7e8q')")
	ErrInvalidActor  = errors.New("actor identity required")

	ErrSeatTaken    = token.ErrSeatTaken
	ErrInvalidToken = token.ErrInvalidToken
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadySeated, "ALREADY_SEATED"},
	{ErrSeatTaken, "SEAT_TAKEN"},
	{ErrInvalidToken, "INVALID_TOKEN"},
	{ErrGameFinished, "GAME_FINISHED"},
	{ErrWrongTurn, "WRONG_TURN"},
	{ErrNotSeated, "NOT_SEATED"},
	{ErrIllegalMove, "ILLEGAL_MOVE"},
	{ErrParse, "PARSE_ERROR"},
	{ErrInvalidActor, "INVALID_ACTOR"},
}

// Code returns the stable wire code for err: "" for nil, INTERNAL for anything
// outside the taxonomy.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}
