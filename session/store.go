package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultKey is the durable storage key used when Options.Key is empty.
const DefaultKey = "auth-storage"

// Default gate cookie names cleared by Logout.
const (
	DefaultTokenCookie = "auth-token"
	DefaultRoleCookie  = "user-role"
)

var (
	// ErrPersist is returned by SetAuth when the durable copy could not be written.
	// The in-memory state is updated regardless.
	ErrPersist = errors.New("session persist failed")
	// ErrHydrate is returned by Hydrate when the durable copy exists but cannot be read.
	ErrHydrate = errors.New("session hydrate failed")
	// ErrMissingStorage is returned by NewStore when Options.Storage is nil.
	ErrMissingStorage = errors.New("session storage is required")
)

// Op identifies a store mutation reported to an Observer.
type Op uint8

const (
	OpSetAuth Op = iota
	OpLogout
	OpHydrate
)

func (o Op) String() string {
	switch o {
	case OpSetAuth:
		return "set_auth"
	case OpLogout:
		return "logout"
	case OpHydrate:
		return "hydrate"
	default:
		return "unknown"
	}
}

// Event describes one completed mutation. Err carries the storage failure, if any.
type Event struct {
	Op       Op
	RoleCode string
	Err      error
}

// Options configures a Store.
type Options struct {
	Storage     Storage
	Key         string
	Browser     Browser
	LoginPath   string
	CookieNames []string
	Observer    func(ctx context.Context, ev Event)
	Logger      *slog.Logger
}

// Store is the session state container. It is safe for concurrent use; writes
// are last-write-wins.
type Store struct {
	storage     Storage
	key         string
	browser     Browser
	loginPath   string
	cookieNames []string
	observer    func(ctx context.Context, ev Event)
	logger      *slog.Logger
	now         func() time.Time

	hydrateOnce sync.Once
	hydrateErr  error

	mu    sync.RWMutex
	state State
	// gen counts SetAuth and Logout calls; a load that started before the
	// latest mutation is discarded.
	gen uint64

	subMu     sync.Mutex
	subs      map[uint64]func(State)
	nextSubID uint64
}

// NewStore creates an empty, unhydrated Store.
func NewStore(opts Options) (*Store, error) {
	if opts.Storage == nil {
		return nil, ErrMissingStorage
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Browser == nil {
		opts.Browser = NopBrowser{}
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.CookieNames == nil {
		opts.CookieNames = []string{DefaultTokenCookie, DefaultRoleCookie}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		storage:     opts.Storage,
		key:         opts.Key,
		browser:     opts.Browser,
		loginPath:   opts.LoginPath,
		cookieNames: append([]string(nil), opts.CookieNames...),
		observer:    opts.Observer,
		logger:      opts.Logger.With("component", "session", "key", opts.Key),
		now:         time.Now,
		subs:        make(map[uint64]func(State)),
	}, nil
}

// SetAuth replaces the token and user and writes the durable copy. Memory is
// updated even when the write fails; the failure is returned wrapped in
// [ErrPersist].
func (s *Store) SetAuth(ctx context.Context, token string, user *User) error {
	user = user.clone()

	s.mu.Lock()
	s.state.Token = token
	s.state.User = user
	s.gen++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	var err error
	data, encErr := Encode(&Record{Token: token, User: user}, s.now().Unix())
	if encErr != nil {
		err = fmt.Errorf("%w: %v", ErrPersist, encErr)
	} else if saveErr := s.storage.Save(ctx, s.key, data); saveErr != nil {
		err = fmt.Errorf("%w: %w", ErrPersist, saveErr)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "session persist failed", "error", err)
	}

	s.observe(ctx, Event{Op: OpSetAuth, RoleCode: roleCode(user), Err: err})
	return err
}

// Logout clears the gate cookies, resets token and user, deletes the durable
// copy and navigates to the login path. IsHydrated is left as is. A storage
// failure is returned after navigation has run.
func (s *Store) Logout(ctx context.Context) error {
	s.browser.ClearCookies(s.cookieNames...)

	s.mu.Lock()
	prevRole := roleCode(s.state.User)
	s.state.Token = ""
	s.state.User = nil
	s.gen++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	err := s.storage.Delete(ctx, s.key)
	if err != nil {
		s.logger.WarnContext(ctx, "session delete failed", "error", err)
	}

	s.browser.Navigate(s.loginPath)

	s.observe(ctx, Event{Op: OpLogout, RoleCode: prevRole, Err: err})
	return err
}

// SetHydrated marks the store hydrated. It never reverts.
func (s *Store) SetHydrated() {
	s.mu.Lock()
	if s.state.IsHydrated {
		s.mu.Unlock()
		return
	}
	s.state.IsHydrated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Hydrate loads the durable copy into memory, then marks the store hydrated.
// It runs once; later calls return the first result. An unreadable copy
// leaves token and user empty and still marks the store hydrated. A copy
// loaded while SetAuth or Logout ran is dropped in favour of memory.
func (s *Store) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		s.hydrateErr = s.hydrate(ctx)
		s.SetHydrated()

		role, _ := s.RoleCode()
		s.observe(ctx, Event{Op: OpHydrate, RoleCode: role, Err: s.hydrateErr})
	})
	return s.hydrateErr
}

func (s *Store) hydrate(ctx context.Context) error {
	s.mu.RLock()
	startGen := s.gen
	s.mu.RUnlock()

	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		s.logger.WarnContext(ctx, "session load failed", "error", err)
		return fmt.Errorf("%w: %w", ErrHydrate, err)
	}

	rec, _, err := Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "session record unreadable", "error", err)
		return fmt.Errorf("%w: %w", ErrHydrate, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != startGen {
		s.logger.DebugContext(ctx, "stale session record discarded")
		return nil
	}
	s.state.Token = rec.Token
	s.state.User = rec.User
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Token returns the current token; empty means none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.clone()
}

// IsHydrated reports whether the durable copy has been loaded.
func (s *Store) IsHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsHydrated
}

// RoleCode returns the user's role code. ok is false until the store is
// hydrated or while no user is held.
func (s *Store) RoleCode() (code string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.IsHydrated || s.state.User == nil {
		return "", false
	}
	return s.state.User.Role.Code, true
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned cancel func is idempotent.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() State {
	return State{
		Token:      s.state.Token,
		User:       s.state.User.clone(),
		IsHydrated: s.state.IsHydrated,
	}
}

func (s *Store) notify(snap State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		snap := snap
		snap.User = snap.User.clone()
		fn(snap)
	}
}

func (s *Store) observe(ctx context.Context, ev Event) {
	if s.observer != nil {
		s.observer(ctx, ev)
	}
}

func roleCode(u *User) string {
	if u == nil {
		return ""
	}
	return u.Role.Code
}
