package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recordingBrowser struct {
	mu        sync.Mutex
	cleared   [][]string
	navigated []string
}

func (b *recordingBrowser) ClearCookies(names ...string) {
	b.mu.Lock()
	b.cleared = append(b.cleared, append([]string(nil), names...))
	b.mu.Unlock()
}

func (b *recordingBrowser) Navigate(path string) {
	b.mu.Lock()
	b.navigated = append(b.navigated, path)
	b.mu.Unlock()
}

type failingStorage struct {
	loadErr   error
	saveErr   error
	deleteErr error
	data      []byte
}

func (f *failingStorage) Load(context.Context, string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.data == nil {
		return nil, ErrNotFound
	}
	return f.data, nil
}

func (f *failingStorage) Save(context.Context, string, []byte) error { return f.saveErr }

func (f *failingStorage) Delete(context.Context, string) error { return f.deleteErr }

func newTestStore(t *testing.T, storage Storage, browser Browser) *Store {
	t.Helper()
	s, err := NewStore(Options{Storage: storage, Browser: browser})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestNewStoreRequiresStorage(t *testing.T) {
	if _, err := NewStore(Options{}); !errors.Is(err, ErrMissingStorage) {
		t.Fatalf("expected ErrMissingStorage, got %v", err)
	}
}

func TestStoreStartsEmpty(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)

	got := s.Snapshot()
	if got.Token != "" || got.User != nil || got.IsHydrated {
		t.Fatalf("unexpected initial state %+v", got)
	}
	if _, ok := s.RoleCode(); ok {
		t.Fatal("RoleCode must report false before hydration")
	}
}

func TestSetAuthPersistsAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newTestStore(t, storage, nil)

	if err := s.SetAuth(ctx, "tok", testUser()); err != nil {
		t.Fatalf("SetAuth: %v", err)
	}
	if s.Token() != "tok" || s.User().Email != "ana@example.com" {
		t.Fatalf("memory not updated: %+v", s.Snapshot())
	}

	reloaded := newTestStore(t, storage, nil)
	if err := reloaded.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !reloaded.IsHydrated() {
		t.Fatal("expected hydrated")
	}
	if !reflect.DeepEqual(reloaded.User(), testUser()) || reloaded.Token() != "tok" {
		t.Fatalf("reloaded state %+v", reloaded.Snapshot())
	}
	if code, ok := reloaded.RoleCode(); !ok || code != "LEADER" {
		t.Fatalf("RoleCode = %q %v", code, ok)
	}
}

func TestSetAuthOverwritesUnconditionally(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryStorage(), nil)

	_ = s.SetAuth(ctx, "first", testUser())
	_ = s.SetAuth(ctx, "", nil)

	got := s.Snapshot()
	if got.Token != "" || got.User != nil {
		t.Fatalf("expected cleared state, got %+v", got)
	}
}

func TestSetAuthPersistFailureKeepsMemory(t *testing.T) {
	boom := errors.New("disk full")
	var events []Event
	s, err := NewStore(Options{
		Storage:  &failingStorage{saveErr: boom},
		Observer: func(_ context.Context, ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	err = s.SetAuth(context.Background(), "tok", testUser())
	if !errors.Is(err, ErrPersist) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrPersist wrapping cause, got %v", err)
	}
	if s.Token() != "tok" {
		t.Fatal("memory must not roll back")
	}
	if len(events) != 1 || events[0].Op != OpSetAuth || events[0].Err == nil || events[0].RoleCode != "LEADER" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestSetAuthCopiesUser(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	u := testUser()
	_ = s.SetAuth(context.Background(), "tok", u)

	u.Email = "changed@example.com"
	if s.User().Email != "ana@example.com" {
		t.Fatal("store must not alias caller's user")
	}
	s.User().Email = "other@example.com"
	if s.User().Email != "ana@example.com" {
		t.Fatal("User must return a copy")
	}
}

func TestLogoutClearsEverythingAndNavigates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	browser := &recordingBrowser{}
	s := newTestStore(t, storage, browser)

	_ = s.SetAuth(ctx, "tok", testUser())
	s.SetHydrated()

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	got := s.Snapshot()
	if got.Token != "" || got.User != nil || !got.IsHydrated {
		t.Fatalf("unexpected state after logout %+v", got)
	}
	if storage.Len() != 0 {
		t.Fatal("durable copy must be deleted")
	}
	if !reflect.DeepEqual(browser.cleared, [][]string{{DefaultTokenCookie, DefaultRoleCookie}}) {
		t.Fatalf("cleared = %v", browser.cleared)
	}
	if !reflect.DeepEqual(browser.navigated, []string{"/login"}) {
		t.Fatalf("navigated = %v", browser.navigated)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryStorage(), &recordingBrowser{})

	_ = s.SetAuth(ctx, "tok", testUser())
	_ = s.Logout(ctx)
	once := s.Snapshot()

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if twice := s.Snapshot(); !reflect.DeepEqual(once, twice) {
		t.Fatalf("state changed on second logout: %+v vs %+v", once, twice)
	}
}

func TestLogoutLeavesHydrationUntouched(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	_ = s.Logout(context.Background())
	if s.IsHydrated() {
		t.Fatal("logout must not set hydration")
	}
}

func TestLogoutStorageFailureStillNavigates(t *testing.T) {
	boom := errors.New("down")
	browser := &recordingBrowser{}
	s := newTestStore(t, &failingStorage{deleteErr: boom}, browser)

	_ = s.SetAuth(context.Background(), "tok", testUser())
	if err := s.Logout(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(browser.navigated) != 1 || s.Token() != "" {
		t.Fatal("logout must complete despite storage failure")
	}
}

func TestSetHydratedIsIdempotent(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)

	notified := 0
	s.Subscribe(func(State) { notified++ })

	for i := 0; i < 3; i++ {
		s.SetHydrated()
		if !s.IsHydrated() {
			t.Fatalf("call %d: hydration reverted", i)
		}
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}
}

func TestHydrateWithoutDurableCopy(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	if err := s.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !s.IsHydrated() || s.Token() != "" {
		t.Fatalf("unexpected state %+v", s.Snapshot())
	}
	if _, ok := s.RoleCode(); ok {
		t.Fatal("no user means no role code")
	}
}

func TestHydrateCorruptCopyStillMarksHydrated(t *testing.T) {
	s := newTestStore(t, &failingStorage{data: []byte{0xde, 0xad}}, nil)

	err := s.Hydrate(context.Background())
	if !errors.Is(err, ErrHydrate) || !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("expected ErrHydrate wrapping ErrRecordCorrupt, got %v", err)
	}
	if !s.IsHydrated() || s.Token() != "" || s.User() != nil {
		t.Fatalf("unexpected state %+v", s.Snapshot())
	}
}

func TestHydrateRunsOnce(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newTestStore(t, storage, nil)

	hydrates := 0
	s.observer = func(_ context.Context, ev Event) {
		if ev.Op == OpHydrate {
			hydrates++
		}
	}

	_ = s.Hydrate(ctx)

	data, _ := Encode(&Record{Token: "late"}, 0)
	_ = storage.Save(ctx, DefaultKey, data)
	_ = s.Hydrate(ctx)

	if hydrates != 1 || s.Token() != "" {
		t.Fatalf("hydrate ran %d times, token %q", hydrates, s.Token())
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)

	var got []State
	cancel := s.Subscribe(func(st State) { got = append(got, st) })

	_ = s.SetAuth(context.Background(), "tok", testUser())
	cancel()
	cancel()
	_ = s.SetAuth(context.Background(), "tok2", nil)

	if len(got) != 1 || got[0].Token != "tok" {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestStoreCustomKeyAndCookies(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	browser := &recordingBrowser{}
	s, err := NewStore(Options{
		Storage:     storage,
		Key:         "auth-storage:b1",
		Browser:     browser,
		LoginPath:   "/signin",
		CookieNames: []string{"t"},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_ = s.SetAuth(ctx, "tok", nil)
	if _, err := storage.Load(ctx, "auth-storage:b1"); err != nil {
		t.Fatalf("expected record under custom key: %v", err)
	}
	_ = s.Logout(ctx)
	if browser.navigated[0] != "/signin" || browser.cleared[0][0] != "t" {
		t.Fatalf("custom options ignored: %+v", browser)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryStorage(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.SetAuth(ctx, "tok", testUser())
			} else {
				_ = s.Snapshot()
				_, _ = s.RoleCode()
			}
		}(i)
	}
	wg.Wait()
}

// blockingStorage hands out data once release is closed, signalling loading
// when Load has been entered.
type blockingStorage struct {
	*MemoryStorage
	loading chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := b.MemoryStorage.Load(ctx, key)
	close(b.loading)
	<-b.release
	return data, err
}

func TestHydrateDiscardsCopyLoadedDuringMutation(t *testing.T) {
	for _, mutate := range []struct {
		name      string
		run       func(s *Store) error
		wantToken string
	}{
		{"set_auth", func(s *Store) error {
			return s.SetAuth(context.Background(), "new-token", &User{ID: "u-2", Role: UserRole{Code: "AGENT"}})
		}, "new-token"},
		{"logout", func(s *Store) error { return s.Logout(context.Background()) }, ""},
	} {
		t.Run(mutate.name, func(t *testing.T) {
			ctx := context.Background()
			storage := &blockingStorage{
				MemoryStorage: NewMemoryStorage(),
				loading:       make(chan struct{}),
				release:       make(chan struct{}),
			}
			old, _ := Encode(&Record{Token: "old-token", User: &User{ID: "u-1", Role: UserRole{Code: "ADMIN"}}}, 0)
			_ = storage.Save(ctx, DefaultKey, old)

			s := newTestStore(t, storage, nil)
			done := make(chan error, 1)
			go func() { done <- s.Hydrate(ctx) }()

			<-storage.loading
			if err := mutate.run(s); err != nil {
				t.Fatalf("mutation: %v", err)
			}
			close(storage.release)
			if err := <-done; err != nil {
				t.Fatalf("Hydrate: %v", err)
			}

			if s.Token() != mutate.wantToken {
				t.Fatalf("token = %q, want %q", s.Token(), mutate.wantToken)
			}
			if !s.IsHydrated() {
				t.Fatal("expected hydrated")
			}
		})
	}
}
