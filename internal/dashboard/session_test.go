package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gctidash/internal/ingest"
	"gctidash/internal/shared/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	logger, _ := testutil.NewTestLogger(t)
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(logger)
	store.now = clock.Now
	return store, clock
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		in      string
		want    Page
		wantErr bool
	}{
		{in: "home", want: PageHome},
		{in: " TMTI ", want: PageTMTI},
		{in: "Compliance", want: PageCompliance},
		{in: "impact", want: PageImpact},
		{in: "settings", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePage(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.Title())
		})
	}
}

func TestStore_CreateAndNavigate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess := store.Create(ctx)
	assert.Equal(t, PageHome, sess.Page)
	assert.False(t, sess.ShowPreview)

	for _, p := range []Page{PageCompliance, PageHome, PageImpact, PageTMTI, PageTMTI} {
		got, err := store.Navigate(ctx, sess.ID, p)
		require.NoError(t, err)
		assert.Equal(t, p, got.Page)
	}

	_, err := store.Navigate(ctx, sess.ID, Page("admin"))
	assert.Error(t, err)
	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, PageTMTI, got.Page)
}

func TestStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Navigate(ctx, "missing", PageHome)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.SetPreview(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_UploadLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sess := store.Create(ctx)

	table := &ingest.Table{Name: "pacientes.csv", Columns: []string{"Provincia"}, Rows: [][]string{{"Loja"}}}
	got, err := store.SetUpload(ctx, sess.ID, table)
	require.NoError(t, err)
	assert.True(t, got.HasUpload())
	assert.Equal(t, "pacientes.csv", got.UploadName)

	got, err = store.SetUploadError(ctx, sess.ID, "broken.csv", errors.New("wrong delimiter"))
	require.NoError(t, err)
	assert.False(t, got.HasUpload())
	assert.Equal(t, "wrong delimiter", got.UploadError)

	got, err = store.Navigate(ctx, sess.ID, PageImpact)
	require.NoError(t, err, "session must stay usable after a failed upload")
	assert.Equal(t, PageImpact, got.Page)

	got, err = store.ClearUpload(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.UploadName)
	assert.Empty(t, got.UploadError)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	sess := store.Create(context.Background())

	copy1, err := store.Get(sess.ID)
	require.NoError(t, err)
	copy1.Page = PageImpact

	copy2, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, PageHome, copy2.Page)
}

func TestStore_Expire(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	stale := store.Create(ctx)
	clock.Advance(20 * time.Minute)
	fresh := store.Create(ctx)
	clock.Advance(15 * time.Minute)

	removed := store.Expire(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_TogglePreviewConcurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sess := store.Create(ctx)

	const toggles = 64
	var wg sync.WaitGroup
	for range toggles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.TogglePreview(ctx, sess.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.False(t, got.ShowPreview, "an even number of toggles restores the flag")

	got, err = store.TogglePreview(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.ShowPreview)

	_, err = store.TogglePreview(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Events(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var events []Event
	store.Subscribe(func(_ context.Context, e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	sess := store.Create(ctx)
	_, err := store.Navigate(ctx, sess.ID, PageCompliance)
	require.NoError(t, err)
	_, err = store.SetPreview(ctx, sess.ID, true)
	require.NoError(t, err)
	_, err = store.SetUploadError(ctx, sess.ID, "x.pdf", errors.New("unsupported"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.Equal(t, EventSessionCreated, events[0].Type)
	assert.Equal(t, EventPageChanged, events[1].Type)
	assert.Equal(t, PageCompliance, events[1].Page)
	assert.Equal(t, EventPreviewToggled, events[2].Type)
	assert.Equal(t, EventUploadFailed, events[3].Type)
	assert.Equal(t, "unsupported", events[3].Detail)
}

func TestStore_RunJanitorStopsOnCancel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
