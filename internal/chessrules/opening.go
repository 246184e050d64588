package chessrules

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// Opening is an ECO classification of a move sequence.
type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

var ecoBook = sync.OnceValue(opening.NewBookECO)

// LookupOpening classifies a SAN history against the ECO book. ok is false when
// the history is empty, cannot be replayed, or matches no book line.
func LookupOpening(history []string) (Opening, bool) {
	if len(history) == 0 {
		return Opening{}, false
	}
	game := nchess.NewGame()
	for _, san := range history {
		if err := game.PushNotationMove(strings.TrimSpace(san), nchess.AlgebraicNotation{}, nil); err != nil {
			return Opening{}, false
		}
	}
	book := ecoBook()
	if book == nil {
		return Opening{}, false
	}
	eco := book.Find(game.Moves())
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}
