package cacheaside

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/pkg/testsupport"
	"github.com/shopspring/decimal"
)

// fakeAccounts is an in-memory persistence.Source that records every gateway
// call. Staged writes are applied when the unit of work completes.
type fakeAccounts struct {
	mu     sync.Mutex
	rows   map[int]domain.Account
	nextID int
	calls  []string

	// getAllErr is consulted with the 1-based call number.
	getAllErr   func(n int) error
	getAllCalls int
	getByID     int
	completeErr error
	panicValue  any

	// release blocks reads until closed; entered is signalled when a read starts.
	release chan struct{}
	entered chan struct{}
}

func newFakeAccounts() *fakeAccounts {
	f := &fakeAccounts{rows: map[int]domain.Account{}, nextID: 4}
	for _, a := range []domain.Account{
		{AccountID: 1, Type: "checking", Balance: decimal.NewFromInt(100), CustomerID: 1},
		{AccountID: 2, Type: "savings", Balance: decimal.RequireFromString("250.50"), CustomerID: 1},
		{AccountID: 3, Type: "checking", Balance: decimal.Zero, CustomerID: 2},
	} {
		f.rows[a.AccountID] = a
	}
	return f
}

// blockReads makes reads wait until the returned func is called.
func (f *fakeAccounts) blockReads() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = make(chan struct{})
	f.entered = make(chan struct{}, 64)
	var once sync.Once
	release := f.release
	return func() { once.Do(func() { close(release) }) }
}

func (f *fakeAccounts) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAccounts) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAccounts) GetAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getAllCalls
}

func (f *fakeAccounts) GetByIDCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getByID
}

func (f *fakeAccounts) wait(ctx context.Context) error {
	f.mu.Lock()
	release, entered := f.release, f.entered
	f.mu.Unlock()
	if release == nil {
		return nil
	}
	select {
	case entered <- struct{}{}:
	default:
	}
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAccounts) Open(ctx context.Context) (persistence.Gateway[domain.Account], persistence.UnitOfWork, error) {
	uow := &fakeUnitOfWork{db: f}
	return &fakeGateway{db: f, uow: uow}, uow, nil
}

type fakeGateway struct {
	db  *fakeAccounts
	uow *fakeUnitOfWork
}

func (g *fakeGateway) GetAll(ctx context.Context) ([]domain.Account, error) {
	f := g.db
	f.mu.Lock()
	f.getAllCalls++
	n := f.getAllCalls
	f.calls = append(f.calls, "GetAll")
	hook, panicValue := f.getAllErr, f.panicValue
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if panicValue != nil {
		panic(panicValue)
	}
	if hook != nil {
		if err := hook(n); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rows := slices.Collect(maps.Values(f.rows))
	slices.SortFunc(rows, func(a, b domain.Account) int { return cmp.Compare(a.AccountID, b.AccountID) })
	return rows, nil
}

func (g *fakeGateway) GetByID(ctx context.Context, id int) (domain.Account, bool, error) {
	f := g.db
	f.mu.Lock()
	f.getByID++
	f.calls = append(f.calls, "GetByID")
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return domain.Account{}, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	return a, ok, nil
}

func (g *fakeGateway) Find(ctx context.Context, criteria ...persistence.Criteria) (domain.Account, bool, error) {
	g.db.record("Find")
	return domain.Account{}, false, nil
}

func (g *fakeGateway) Add(ctx context.Context, entity *domain.Account) (*domain.Account, error) {
	g.db.record("Add")
	g.uow.stage(func(f *fakeAccounts) error {
		entity.AccountID = f.nextID
		f.nextID++
		f.rows[entity.AccountID] = *entity
		return nil
	})
	return entity, nil
}

func (g *fakeGateway) Update(ctx context.Context, id int, entity domain.Account) (domain.Account, error) {
	g.db.record("Update")
	g.uow.stage(func(f *fakeAccounts) error {
		if _, ok := f.rows[id]; !ok {
			return &persistence.NotFoundError{Entity: "account", ID: id}
		}
		f.rows[id] = entity
		return nil
	})
	return entity, nil
}

func (g *fakeGateway) Delete(ctx context.Context, entity domain.Account) error {
	g.db.record("Delete")
	g.uow.stage(func(f *fakeAccounts) error {
		delete(f.rows, entity.AccountID)
		return nil
	})
	return nil
}

type fakeUnitOfWork struct {
	db     *fakeAccounts
	staged []func(*fakeAccounts) error
}

func (u *fakeUnitOfWork) stage(fn func(*fakeAccounts) error) {
	u.staged = append(u.staged, fn)
}

func (u *fakeUnitOfWork) Complete(ctx context.Context) (int, error) {
	f := u.db
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Complete")
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	for _, fn := range u.staged {
		if err := fn(f); err != nil {
			return 0, persistence.Wrap("commit", err)
		}
	}
	return len(u.staged), nil
}

// failingStore reports an error on every lookup.
type failingStore struct {
	cache.Store
	err error
}

func (s failingStore) Lookup(ctx context.Context, key string) (any, bool, error) {
	return nil, false, s.err
}

var errStore = errors.New("store unavailable")

type recordingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingInvalidator) InvalidateAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingInvalidator) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type logEntry struct {
	level  string
	msg    string
	fields logging.Fields
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, f logging.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: f})
}

func (l *recordingLogger) Debug(msg string, f logging.Fields) { l.add("debug", msg, f) }
func (l *recordingLogger) Info(msg string, f logging.Fields)  { l.add("info", msg, f) }
func (l *recordingLogger) Warn(msg string, f logging.Fields)  { l.add("warn", msg, f) }
func (l *recordingLogger) Error(msg string, f logging.Fields) { l.add("error", msg, f) }

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// newTestStore returns a sturdyc store driven by clock.
func newTestStore(t *testing.T, clock *testsupport.FakeClock) cache.Store {
	t.Helper()
	cfg := cache.DefaultConfig()
	if clock != nil {
		cfg.Clock = clock
	}
	store, err := cache.NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

type harness struct {
	db    *fakeAccounts
	clock *testsupport.FakeClock
	store cache.Store
	svc   *Service[domain.Account]
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clock := testsupport.NewFakeClock(time.Time{})
	db := newFakeAccounts()
	store := newTestStore(t, clock)
	return &harness{
		db:    db,
		clock: clock,
		store: store,
		svc:   New[domain.Account](db, store, opts...),
	}
}
