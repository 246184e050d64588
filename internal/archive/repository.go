// Package archive stores finished games, with a full PGN record, in PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/pgn"
	"github.com/park285/chess-arbiter/internal/session"
)

const schema = `CREATE TABLE IF NOT EXISTS arbiter_games (
	game_id      BIGINT PRIMARY KEY,
	white_id     TEXT NOT NULL DEFAULT '',
	black_id     TEXT NOT NULL DEFAULT '',
	result       TEXT NOT NULL,
	status       TEXT NOT NULL,
	moves_san    JSONB NOT NULL,
	pgn          TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
)`

const upsert = `INSERT INTO arbiter_games (
	game_id, white_id, black_id, result, status, moves_san, pgn,
	started_at, ended_at, duration_ms
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (game_id) DO UPDATE SET
	white_id=EXCLUDED.white_id,
	black_id=EXCLUDED.black_id,
	result=EXCLUDED.result,
	status=EXCLUDED.status,
	moves_san=EXCLUDED.moves_san,
	pgn=EXCLUDED.pgn,
	started_at=EXCLUDED.started_at,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewFromDB wraps an existing handle.
func NewFromDB(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the archive table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Archive upserts a finished game. Ongoing snapshots are ignored.
func (r *Repository) Archive(ctx context.Context, snap session.Snapshot) error {
	if r == nil || r.db == nil || !snap.Status.Terminal() {
		return nil
	}
	row, err := rowFor(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsert,
		int64(row.id),
		row.white, row.black,
		row.result, row.status, row.movesJSON, row.pgn,
		row.startedAt, row.endedAt, row.durationMS,
	)
	if err != nil {
		return fmt.Errorf("archive game %d: %w", snap.ID, err)
	}
	return nil
}

type archiveRow struct {
	id         uint64
	white      string
	black      string
	result     string
	status     string
	movesJSON  string
	pgn        string
	startedAt  time.Time
	endedAt    time.Time
	durationMS int64
}

func rowFor(snap session.Snapshot) (archiveRow, error) {
	moves := snap.MovesSAN
	if moves == nil {
		moves = []string{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return archiveRow{}, err
	}
	duration := snap.UpdatedAt.Sub(snap.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return archiveRow{
		id:        snap.ID,
		white:     snap.White.Occupant,
		black:     snap.Black.Occupant,
		result:    resultToken(snap.Status),
		status:    snap.Status.String(),
		movesJSON: string(raw),
		pgn: pgn.Archive(pgn.Record{
			ID:       snap.ID,
			White:    snap.White.Occupant,
			Black:    snap.Black.Occupant,
			Date:     snap.UpdatedAt,
			Status:   snap.Status,
			MovesSAN: moves,
		}),
		startedAt:  snap.CreatedAt,
		endedAt:    snap.UpdatedAt,
		durationMS: duration,
	}, nil
}

// resultToken is the short winner label stored next to the PGN result.
func resultToken(st session.Status) string {
	switch st.Kind {
	case session.StatusCheckmate, session.StatusResigned:
		if st.Winner == chessrules.White {
			return "white"
		}
		return "black"
	case session.StatusStalemate, session.StatusDraw:
		return "draw"
	default:
		return ""
	}
}
