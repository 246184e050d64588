package session

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/park285/chess-arbiter/internal/chessrules"
)

// moveParser turns caller text into a legal move. A parser that does not
// recognise the grammar returns errNotMine so the next one gets a turn.
type moveParser interface {
	parse(rules chessrules.Rules, pos chessrules.Position, text string) (chessrules.Move, error)
}

var errNotMine = errors.New("grammar not recognised")

// Resolver tries its parsers in order; the first success wins.
type Resolver struct {
	rules   chessrules.Rules
	parsers []moveParser
}

func NewResolver(rules chessrules.Rules) *Resolver {
	return &Resolver{
		rules:   rules,
		parsers: []moveParser{coordinateParser{}, algebraicParser{}},
	}
}

// Resolve returns the legal move named by text. Text matching no grammar fails
// with ErrParse; text that parses but names no legal move fails with ErrIllegalMove.
func (r *Resolver) Resolve(pos chessrules.Position, text string) (chessrules.Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chessrules.Move{}, ErrParse
	}
	var illegal error
	for _, p := range r.parsers {
		mv, err := p.parse(r.rules, pos, text)
		switch {
		case err == nil:
			return mv, nil
		case errors.Is(err, errNotMine):
			continue
		case illegal == nil:
			illegal = err
		}
	}
	if illegal != nil {
		return chessrules.Move{}, illegal
	}
	return chessrules.Move{}, fmt.Errorf("%w: %q", ErrParse, text)
}

var coordinatePattern = regexp.MustCompile(`^([a-h][1-8])([a-h][1-8])([qrbn]?)$`)

// coordinateParser reads e2e4 / e7e8q. A missing promotion picks the
// non-promoting move, or the queen promotion when the pawn must promote.
type coordinateParser struct{}

func (coordinateParser) parse(rules chessrules.Rules, pos chessrules.Position, text string) (chessrules.Move, error) {
	m := coordinatePattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return chessrules.Move{}, errNotMine
	}
	from, to := m[1], m[2]
	want := chessrules.NoPromotion
	if m[3] != "" {
		want, _ = chessrules.ParsePromotion(m[3][0])
	}
	for _, lm := range rules.LegalMoves(pos) {
		if lm.From != from || lm.To != to {
			continue
		}
		if want != chessrules.NoPromotion {
			if lm.Promotion == want {
				return lm, nil
			}
			continue
		}
		if lm.Promotion == chessrules.NoPromotion || lm.Promotion == chessrules.PromoQueen {
			return lm, nil
		}
	}
	return chessrules.Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
}

var sanPattern = regexp.MustCompile(`^(?:[NBRQK]?[a-h]?[1-8]?x?[a-h][1-8](?:=?[NBRQ])?|O-O(?:-O)?|0-0(?:-0)?)[+#]?[!?]*$`)

// algebraicParser delegates to the engine's SAN decoder.
type algebraicParser struct{}

func (algebraicParser) parse(rules chessrules.Rules, pos chessrules.Position, text string) (chessrules.Move, error) {
	if !sanPattern.MatchString(text) {
		return chessrules.Move{}, errNotMine
	}
	san := strings.NewReplacer("0-0-0", "O-O-O", "0-0", "O-O").Replace(text)
	mv, err := rules.ParseNotation(pos, san)
	if err != nil {
		return chessrules.Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	return mv, nil
}
