// Package registry owns every live game: it allocates ids, serialises
// mutations behind one mutex and writes committed state through to a Store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/metrics"
	"github.com/park285/chess-arbiter/internal/obslog"
	"github.com/park285/chess-arbiter/internal/pgn"
	"github.com/park285/chess-arbiter/internal/session"
	"github.com/park285/chess-arbiter/internal/token"
)

// Store keeps a secondary copy of committed sessions.
type Store interface {
	Save(ctx context.Context, snap session.Snapshot) error
	LoadAll(ctx context.Context) ([]session.Snapshot, error)
}

// Archiver records games that reached a terminal status.
type Archiver interface {
	Archive(ctx context.Context, snap session.Snapshot) error
}

type nopStore struct{}

func (nopStore) Save(context.Context, session.Snapshot) error { return nil }
func (nopStore) LoadAll(context.Context) ([]session.Snapshot, error) {
	return nil, nil
}

type Option func(*Registry)

func WithStore(s Store) Option       { return func(r *Registry) { r.store = s } }
func WithArchiver(a Archiver) Option { return func(r *Registry) { r.archiver = a } }
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) { r.clock = c }
}
func WithRules(rules chessrules.Rules) Option {
	return func(r *Registry) { r.rules = rules }
}
func WithAuthority(a *token.Authority) Option {
	return func(r *Registry) { r.auth = a }
}
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

type Registry struct {
	rules    chessrules.Rules
	auth     *token.Authority
	clock    clockwork.Clock
	store    Store
	archiver Archiver
	log      *zap.Logger

	mu     sync.Mutex
	games  map[uint64]*session.Session
	order  []uint64
	lastID uint64
}

func New(opts ...Option) *Registry {
	r := &Registry{games: make(map[uint64]*session.Session)}
	for _, o := range opts {
		o(r)
	}
	if r.rules == nil {
		r.rules = chessrules.NewEngine()
	}
	if r.auth == nil {
		r.auth = token.NewAuthority(token.CryptoSource{}, token.DefaultSecretBytes)
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.store == nil {
		r.store = nopStore{}
	}
	if r.log == nil {
		r.log = obslog.L()
	}
	return r
}

// CreateGame draws both secrets before the game exists; only then is an id
// allocated and the game published. The plaintext secrets are returned once.
func (r *Registry) CreateGame(ctx context.Context) (id uint64, whiteSecret, blackSecret string, err error) {
	whiteSecret, err = r.auth.Generate(ctx)
	if err != nil {
		metrics.Operations.WithLabelValues("create", "INTERNAL").Inc()
		return 0, "", "", fmt.Errorf("generate white secret: %w", err)
	}
	blackSecret, err = r.auth.Generate(ctx)
	if err != nil {
		metrics.Operations.WithLabelValues("create", "INTERNAL").Inc()
		return 0, "", "", fmt.Errorf("generate black secret: %w", err)
	}
	wh, bh := token.Hash(whiteSecret), token.Hash(blackSecret)

	r.mu.Lock()
	r.lastID++
	id = r.lastID
	s := session.New(id, r.rules, wh, bh, r.clock.Now())
	r.games[id] = s
	r.order = append(r.order, id)
	r.saveLocked(ctx, s)
	n := len(r.games)
	r.mu.Unlock()

	metrics.GamesCreated.Inc()
	metrics.GamesActive.Set(float64(n))
	metrics.Operations.WithLabelValues("create", "ok").Inc()
	r.log.Info("game_create", zap.Uint64("game_id", id))
	return id, whiteSecret, blackSecret, nil
}

func (r *Registry) Get(id uint64) (session.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.games[id]
	if !ok {
		return session.View{}, false
	}
	return s.View(), true
}

// ListRecent returns games by id descending, skipping offset and returning at most limit.
func (r *Registry) ListRecent(offset, limit int) []session.View {
	if offset < 0 {
		offset = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || offset >= len(r.order) {
		return []session.View{}
	}
	out := make([]session.View, 0, min(limit, len(r.order)-offset))
	for i := len(r.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.games[r.order[i]].View())
	}
	return out
}

func (r *Registry) Join(ctx context.Context, id uint64, secret, actor string) (session.View, error) {
	v, err := r.mutate(ctx, "join", id, func(s *session.Session, now time.Time) (session.View, error) {
		return s.Join(secret, actor, now)
	})
	if err == nil {
		r.log.Info("game_join", zap.Uint64("game_id", id), zap.String("actor", actor), zap.String("role", string(roleIn(v, actor))))
	}
	return v, err
}

func (r *Registry) MakeMove(ctx context.Context, id uint64, actor, notation string) (session.View, error) {
	v, err := r.mutate(ctx, "move", id, func(s *session.Session, now time.Time) (session.View, error) {
		return s.MakeMove(actor, notation, now)
	})
	if err == nil {
		r.log.Info("game_move",
			zap.Uint64("game_id", id),
			zap.String("actor", actor),
			zap.String("input", notation),
			zap.String("san", v.MovesSAN[len(v.MovesSAN)-1]),
			zap.Int("ply", len(v.MovesSAN)),
			zap.String("status", v.Status.String()),
		)
	}
	return v, err
}

func (r *Registry) Resign(ctx context.Context, id uint64, actor string) (session.View, error) {
	v, err := r.mutate(ctx, "resign", id, func(s *session.Session, now time.Time) (session.View, error) {
		return s.Resign(actor, now)
	})
	if err == nil {
		r.log.Info("game_resign", zap.Uint64("game_id", id), zap.String("actor", actor), zap.String("status", v.Status.String()))
	}
	return v, err
}

// RoleOf is Spectator for unknown games.
func (r *Registry) RoleOf(actor string, id uint64) session.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.games[id]
	if !ok {
		return session.RoleSpectator
	}
	return s.RoleOf(actor)
}

func (r *Registry) ExportPGN(id uint64) (string, error) {
	r.mu.Lock()
	s, ok := r.games[id]
	var history []string
	if ok {
		history = s.History()
	}
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %d", session.ErrNotFound, id)
	}
	return pgn.Export(id, history), nil
}

// Inspect exposes seat digests. Debug surfaces only.
func (r *Registry) Inspect(id uint64) (session.Debug, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.games[id]
	if !ok {
		return session.Debug{}, false
	}
	return s.Debug(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

// Restore loads every stored snapshot into an empty registry. Snapshots that
// fail to replay are skipped and logged. New ids continue above the highest
// stored id, skipped or not.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	snaps, err := r.store.LoadAll(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		return 0, fmt.Errorf("load snapshots: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.games) > 0 {
		return 0, errors.New("restore into a non-empty registry")
	}
	for _, snap := range snaps {
		// skipped snapshots still reserve their id
		r.lastID = max(r.lastID, snap.ID)
		s, err := session.Restore(r.rules, snap)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("restore").Inc()
			r.log.Warn("game_restore_skip", zap.Uint64("game_id", snap.ID), zap.Error(err))
			continue
		}
		if _, dup := r.games[s.ID()]; dup {
			continue
		}
		r.games[s.ID()] = s
		r.order = append(r.order, s.ID())
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	metrics.GamesActive.Set(float64(len(r.games)))
	r.log.Info("game_restore", zap.Int("count", len(r.games)), zap.Uint64("last_id", r.lastID))
	return len(r.games), nil
}

// mutate runs fn under the lock, persists on success and archives a game the
// first time it becomes terminal.
func (r *Registry) mutate(ctx context.Context, op string, id uint64, fn func(*session.Session, time.Time) (session.View, error)) (session.View, error) {
	r.mu.Lock()
	s, ok := r.games[id]
	if !ok {
		r.mu.Unlock()
		metrics.Operations.WithLabelValues(op, "NOT_FOUND").Inc()
		return session.View{}, fmt.Errorf("%w: %d", session.ErrNotFound, id)
	}
	wasTerminal := s.Status().Terminal()
	v, err := fn(s, r.clock.Now())
	if err != nil {
		r.mu.Unlock()
		metrics.Operations.WithLabelValues(op, session.Code(err)).Inc()
		r.log.Debug("game_"+op+"_rejected", zap.Uint64("game_id", id), zap.Error(err))
		return session.View{}, err
	}
	r.saveLocked(ctx, s)
	var finished *session.Snapshot
	if !wasTerminal && v.Status.Terminal() {
		snap := s.Snapshot()
		finished = &snap
	}
	r.mu.Unlock()

	metrics.Operations.WithLabelValues(op, "ok").Inc()
	if finished != nil {
		metrics.GamesFinished.WithLabelValues(string(v.Status.Kind)).Inc()
		r.archive(ctx, *finished)
	}
	return v, nil
}

func (r *Registry) saveLocked(ctx context.Context, s *session.Session) {
	if err := r.store.Save(ctx, s.Snapshot()); err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		r.log.Error("game_store_save", zap.Uint64("game_id", s.ID()), zap.Error(err))
	}
}

func (r *Registry) archive(ctx context.Context, snap session.Snapshot) {
	if r.archiver == nil {
		return
	}
	if err := r.archiver.Archive(ctx, snap); err != nil {
		metrics.ArchiveErrors.Inc()
		r.log.Error("game_archive", zap.Uint64("game_id", snap.ID), zap.Error(err))
		return
	}
	r.log.Info("game_archive", zap.Uint64("game_id", snap.ID), zap.String("status", snap.Status.String()))
}

func roleIn(v session.View, actor string) session.Role {
	switch {
	case v.White != nil && *v.White == actor:
		return session.RoleWhite
	case v.Black != nil && *v.Black == actor:
		return session.RoleBlack
	default:
		return session.RoleSpectator
	}
}
