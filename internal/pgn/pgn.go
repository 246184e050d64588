// Package pgn renders game records in Portable Game Notation.
package pgn

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/session"
)

// Export renders the minimal record served to callers: three tags and the
// numbered move text, built only from stored SAN.
func Export(id uint64, history []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Chess Arbiter %d\"]\n", id)
	b.WriteString("[White \"?\"]\n[Black \"?\"]\n\n")
	writeMoves(&b, history)
	return b.String()
}

// Record is a finished game as archived.
type Record struct {
	ID       uint64
	White    string
	Black    string
	Date     time.Time
	Status   session.Status
	MovesSAN []string
}

// Archive renders a full record: the seven-tag roster in order, Termination
// when the game is over, and a result terminator.
func Archive(r Record) string {
	result := Result(r.Status)
	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Chess Arbiter %d\"]\n", r.ID)
	b.WriteString("[Site \"?\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	b.WriteString("[Round \"?\"]\n")
	fmt.Fprintf(&b, "[White \"%s\"]\n", tagValue(r.White))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", tagValue(r.Black))
	fmt.Fprintf(&b, "[Result \"%s\"]\n", result)
	if t := Termination(r.Status); t != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", t)
	}
	b.WriteString("\n")
	writeMoves(&b, r.MovesSAN)
	b.WriteString(result)
	return b.String()
}

// Result maps a status to a PGN result token.
func Result(st session.Status) string {
	switch st.Kind {
	case session.StatusCheckmate, session.StatusResigned:
		if st.Winner == chessrules.White {
			return "1-0"
		}
		return "0-1"
	case session.StatusStalemate, session.StatusDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// Termination names how a finished game ended, or "" while it is ongoing.
func Termination(st session.Status) string {
	switch st.Kind {
	case session.StatusCheckmate:
		return "checkmate"
	case session.StatusStalemate:
		return "stalemate"
	case session.StatusResigned:
		return "resignation"
	case session.StatusDraw:
		if st.Reason != "" {
			return tagValue(strings.ToLower(st.Reason))
		}
		return "draw"
	default:
		return ""
	}
}

func writeMoves(b *strings.Builder, history []string) {
	for ply, san := range history {
		if ply%2 == 0 {
			fmt.Fprintf(b, "%d. %s ", ply/2+1, san)
		} else {
			fmt.Fprintf(b, "%s ", san)
		}
	}
}

func tagValue(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.TrimSpace(s)
	if s == "" {
		return "?"
	}
	return s
}
