package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/park285/chess-arbiter/pkg/chessdto"
)

// Output formats command results as text or indented JSON.
type Output struct {
	format string
	w      io.Writer
}

func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
		return
	}
	switch v := data.(type) {
	case chessdto.CreateGameResponse:
		fmt.Fprintf(o.w, "game %d\n  white secret: %s\n  black secret: %s\n", v.ID, v.WhiteSecret, v.BlackSecret)
	case chessdto.GameView:
		o.printGame(v)
	case chessdto.ListResponse:
		if len(v.Games) == 0 {
			fmt.Fprintln(o.w, "no games")
			return
		}
		for _, g := range v.Games {
			fmt.Fprintf(o.w, "%-6d %-10s %3d plies  %s vs %s\n", g.ID, g.Status.Kind, len(g.MovesSAN), seatName(g.White), seatName(g.Black))
		}
	default:
		o.printJSON(data)
	}
}

// PrintMessage writes msg as a line, or as {"message": msg} in JSON mode.
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
		return
	}
	fmt.Fprintln(o.w, strings.TrimRight(msg, "\n"))
}

func (o *Output) printGame(g chessdto.GameView) {
	fmt.Fprintf(o.w, "game %d: %s", g.ID, g.Status.Kind)
	if g.Status.Winner != "" {
		fmt.Fprintf(o.w, " (%s wins)", g.Status.Winner)
	}
	fmt.Fprintln(o.w)
	fmt.Fprintf(o.w, "  white: %s\n  black: %s\n", seatName(g.White), seatName(g.Black))
	if g.Opening != nil {
		fmt.Fprintf(o.w, "  opening: %s %s\n", g.Opening.Code, g.Opening.Title)
	}
	fmt.Fprintf(o.w, "  fen: %s\n", g.FEN)
	if len(g.MovesSAN) > 0 {
		fmt.Fprintf(o.w, "  moves: %s\n", strings.Join(g.MovesSAN, " "))
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func seatName(p *string) string {
	if p == nil {
		return "(open)"
	}
	return *p
}
