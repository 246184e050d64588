package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/registry"
	"github.com/park285/chess-arbiter/internal/session"
	"github.com/park285/chess-arbiter/internal/store/redisstore"
	"github.com/park285/chess-arbiter/internal/token"
	"github.com/park285/chess-arbiter/internal/token/tokentest"
)

var (
	_ registry.Store = (*redisstore.Store)(nil)
	t0               = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

type memStore struct {
	mu    sync.Mutex
	snaps map[uint64]session.Snapshot
	saves int
	fail  error
}

func newMemStore() *memStore { return &memStore{snaps: map[uint64]session.Snapshot{}} }

func (m *memStore) Save(_ context.Context, snap session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.fail != nil {
		return m.fail
	}
	m.snaps[snap.ID] = snap
	return nil
}

func (m *memStore) LoadAll(context.Context) ([]session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]session.Snapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, s)
	}
	return out, nil
}

type recordingArchiver struct {
	mu    sync.Mutex
	snaps []session.Snapshot
}

func (a *recordingArchiver) Archive(_ context.Context, snap session.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snap)
	return nil
}

type fixture struct {
	reg   *registry.Registry
	clock *clockwork.FakeClock
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...registry.Option) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	core, logs := observer.New(zapcore.DebugLevel)
	base := []registry.Option{
		registry.WithClock(clock),
		registry.WithLogger(zap.New(core)),
		registry.WithAuthority(token.NewAuthority(&tokentest.CounterSource{}, token.DefaultSecretBytes)),
	}
	return fixture{reg: registry.New(append(base, opts...)...), clock: clock, logs: logs}
}

func (f fixture) create(t *testing.T) (uint64, string, string) {
	t.Helper()
	id, ws, bs, err := f.reg.CreateGame(context.Background())
	require.NoError(t, err)
	return id, ws, bs
}

func TestCreateGameAssignsIncreasingIDs(t *testing.T) {
	f := newFixture(t)
	for want := uint64(1); want <= 3; want++ {
		id, ws, bs := f.create(t)
		assert.Equal(t, want, id)
		assert.NotEqual(t, ws, bs)
		assert.Len(t, ws, 43)
	}
	assert.Equal(t, 3, f.reg.Len())

	v, ok := f.reg.Get(2)
	require.True(t, ok)
	assert.Equal(t, uint64(2), v.ID)
	assert.Equal(t, session.Ongoing(), v.Status)
	assert.True(t, v.WhiteToMove)
	assert.Empty(t, v.MovesSAN)
	assert.Equal(t, t0, v.CreatedAt)

	_, ok = f.reg.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 3, f.logs.FilterMessage("game_create").Len())
}

func TestListRecent(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create(t)
	}
	ids := func(vs []session.View) []uint64 {
		out := []uint64{}
		for _, v := range vs {
			out = append(out, v.ID)
		}
		return out
	}
	assert.Equal(t, []uint64{5, 4, 3}, ids(f.reg.ListRecent(0, 3)))
	assert.Equal(t, []uint64{3, 2, 1}, ids(f.reg.ListRecent(2, 10)))
	assert.Empty(t, f.reg.ListRecent(5, 10))
	assert.Empty(t, f.reg.ListRecent(100, 1))
	assert.Empty(t, f.reg.ListRecent(0, 0))
	assert.NotNil(t, f.reg.ListRecent(9, 1))
}

func TestUnknownGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reg.Join(ctx, 9, "s", "a")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.reg.MakeMove(ctx, 9, "a", "e4")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.reg.Resign(ctx, 9, "a")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.reg.ExportPGN(9)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, ok := f.reg.Inspect(9)
	assert.False(t, ok)
	assert.Equal(t, session.RoleSpectator, f.reg.RoleOf("a", 9))
}

func TestJoinScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, ws, bs := f.create(t)

	f.clock.Advance(time.Minute)
	v, err := f.reg.Join(ctx, id, ws, "A")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), v.UpdatedAt)
	assert.Equal(t, session.RoleWhite, f.reg.RoleOf("A", id))

	_, err = f.reg.Join(ctx, id, ws, "B")
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	_, err = f.reg.Join(ctx, id, bs, "B")
	require.NoError(t, err)
	assert.Equal(t, session.RoleBlack, f.reg.RoleOf("B", id))
	assert.Equal(t, session.RoleSpectator, f.reg.RoleOf("C", id))

	dbg, ok := f.reg.Inspect(id)
	require.True(t, ok)
	assert.Nil(t, dbg.WhiteHash)
	assert.Nil(t, dbg.BlackHash)
	assert.Equal(t, "A", *dbg.White)
}

func TestMovesAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, ws, bs := f.create(t)
	_, err := f.reg.Join(ctx, id, ws, "A")
	require.NoError(t, err)
	_, err = f.reg.Join(ctx, id, bs, "B")
	require.NoError(t, err)

	v, err := f.reg.MakeMove(ctx, id, "A", "e2e4")
	require.NoError(t, err)
	assert.Equal(t, []string{"e4"}, v.MovesSAN)

	_, err = f.reg.MakeMove(ctx, id, "A", "d2d4")
	assert.ErrorIs(t, err, session.ErrWrongTurn)

	_, err = f.reg.MakeMove(ctx, id, "B", "e5")
	require.NoError(t, err)
	_, err = f.reg.MakeMove(ctx, id, "A", "Nf3")
	require.NoError(t, err)

	text, err := f.reg.ExportPGN(id)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("[Event \"Chess Arbiter %d\"]\n[White \"?\"]\n[Black \"?\"]\n\n1. e4 e5 2. Nf3 ", id), text)

	moves := f.logs.FilterMessage("game_move").All()
	require.Len(t, moves, 3)
	assert.Equal(t, "e4", moves[0].ContextMap()["san"])
}

func TestCheckmateIsArchivedOnce(t *testing.T) {
	arch := &recordingArchiver{}
	f := newFixture(t, registry.WithArchiver(arch))
	ctx := context.Background()
	id, ws, _ := f.create(t)

	for _, mv := range []string{"f3", "e5", "g4"} {
		_, err := f.reg.MakeMove(ctx, id, "", mv)
		require.NoError(t, err)
	}
	v, err := f.reg.MakeMove(ctx, id, "", "Qh4#")
	require.NoError(t, err)
	assert.Equal(t, session.Checkmate(chessrules.Black), v.Status)

	_, err = f.reg.MakeMove(ctx, id, "", "a3")
	assert.ErrorIs(t, err, session.ErrGameFinished)
	_, err = f.reg.Resign(ctx, id, "")
	assert.ErrorIs(t, err, session.ErrGameFinished)

	// late seat claims still succeed but do not re-archive
	_, err = f.reg.Join(ctx, id, ws, "late")
	require.NoError(t, err)

	require.Len(t, arch.snaps, 1)
	assert.Equal(t, id, arch.snaps[0].ID)
	assert.Len(t, arch.snaps[0].MovesSAN, 4)
}

func TestResignArchives(t *testing.T) {
	arch := &recordingArchiver{}
	f := newFixture(t, registry.WithArchiver(arch))
	ctx := context.Background()
	id, _, bs := f.create(t)

	_, err := f.reg.Resign(ctx, id, "B")
	assert.ErrorIs(t, err, session.ErrNotSeated)

	_, err = f.reg.Join(ctx, id, bs, "B")
	require.NoError(t, err)
	v, err := f.reg.Resign(ctx, id, "B")
	require.NoError(t, err)
	assert.Equal(t, session.Resigned(chessrules.White), v.Status)
	require.Len(t, arch.snaps, 1)
}

func TestWriteThroughStore(t *testing.T) {
	store := newMemStore()
	f := newFixture(t, registry.WithStore(store))
	ctx := context.Background()
	id, ws, _ := f.create(t)
	_, err := f.reg.Join(ctx, id, ws, "A")
	require.NoError(t, err)
	_, err = f.reg.MakeMove(ctx, id, "A", "d4")
	require.NoError(t, err)
	_, err = f.reg.MakeMove(ctx, id, "A", "e2e4")
	require.Error(t, err)

	assert.Equal(t, 3, store.saves)
	snap := store.snaps[id]
	assert.Equal(t, []string{"d4"}, snap.MovesSAN)
	assert.Equal(t, "A", snap.White.Occupant)
	assert.NotEmpty(t, snap.Black.Digest)
}

func TestStoreFailureKeepsCommit(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("redis down")
	f := newFixture(t, registry.WithStore(store))
	id, _, _ := f.create(t)

	v, err := f.reg.MakeMove(context.Background(), id, "", "e4")
	require.NoError(t, err)
	assert.Equal(t, []string{"e4"}, v.MovesSAN)
	assert.Equal(t, 2, f.logs.FilterMessage("game_store_save").Len())
}

func TestCreateGameNeverExposesHalfCreatedGame(t *testing.T) {
	src := tokentest.NewGateSource()
	f := newFixture(t, registry.WithAuthority(token.NewAuthority(src, 0)))

	type result struct {
		id  uint64
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, _, _, err := f.reg.CreateGame(context.Background())
		done <- result{id, err}
	}()

	<-src.Entered
	assert.Equal(t, 0, f.reg.Len())
	assert.Empty(t, f.reg.ListRecent(0, 10))
	_, ok := f.reg.Get(1)
	assert.False(t, ok)

	src.Release()
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, uint64(1), res.id)
	assert.Equal(t, 1, f.reg.Len())
}

func TestCreateGameCancelledLeavesNoTrace(t *testing.T) {
	src := tokentest.NewGateSource()
	f := newFixture(t, registry.WithAuthority(token.NewAuthority(src, 0)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := f.reg.CreateGame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.reg.Len())

	src.Release()
	id, _, _ := f.create(t)
	assert.Equal(t, uint64(1), id)
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	const n = 50
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, _, err := f.reg.CreateGame(context.Background())
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, uint64(n), f.reg.ListRecent(0, 1)[0].ID)
}

func TestConcurrentJoinsClaimSeatOnce(t *testing.T) {
	f := newFixture(t)
	id, ws, _ := f.create(t)

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			if _, err := f.reg.Join(context.Background(), id, ws, actor); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, session.ErrInvalidToken)
			}
		}(fmt.Sprintf("actor-%d", i))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRestoreFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	newStore := func() *redisstore.Store {
		s, err := redisstore.New(ctx, "redis://"+mr.Addr()+"/0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	f := newFixture(t, registry.WithStore(newStore()))
	id1, ws, bs := f.create(t)
	id2, _, _ := f.create(t)
	_, err := f.reg.Join(ctx, id1, ws, "A")
	require.NoError(t, err)
	_, err = f.reg.MakeMove(ctx, id1, "A", "e4")
	require.NoError(t, err)
	_, err = f.reg.MakeMove(ctx, id1, "", "c5")
	require.NoError(t, err)
	_, err = f.reg.Resign(ctx, id1, "A")
	require.NoError(t, err)

	g := newFixture(t, registry.WithStore(newStore()))
	n, err := g.reg.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []uint64{id1, id2} {
		want, _ := f.reg.Get(id)
		got, ok := g.reg.Get(id)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	// the unclaimed black secret still works after a restart
	_, err = g.reg.Join(ctx, id1, bs, "B")
	require.NoError(t, err)

	id3, _, _ := g.create(t)
	assert.Equal(t, id2+1, id3)

	_, err = g.reg.Restore(ctx)
	assert.Error(t, err)
}

func TestRestoreSkipsBrokenSnapshots(t *testing.T) {
	store := newMemStore()
	store.snaps[4] = session.Snapshot{ID: 4, MovesSAN: []string{"e5"}, White: session.SeatRecord{Occupant: "x"}, Black: session.SeatRecord{Occupant: "y"}}
	store.snaps[2] = session.Snapshot{ID: 2, White: session.SeatRecord{Occupant: "x"}, Black: session.SeatRecord{Occupant: "y"}, Status: session.Ongoing()}
	f := newFixture(t, registry.WithStore(store))

	n, err := f.reg.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.logs.FilterMessage("game_restore_skip").Len())

	for want := uint64(5); want <= 6; want++ {
		id, _, _ := f.create(t)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, []string{"e5"}, store.snaps[4].MovesSAN, "skipped snapshot must not be overwritten")
}
