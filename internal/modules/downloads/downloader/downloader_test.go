package downloader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/store"
)

func newTestDownloader(t *testing.T) (*Downloader, *store.Store) {
	t.Helper()
	st, err := store.New(store.NewMemoryPersister())
	if err != nil {
		t.Fatalf("store.New() unexpected error = %v", err)
	}
	d := New(st, t.TempDir(), nil, logger.New("info", false))
	t.Cleanup(d.Close)
	return d, st
}

// waitFinished blocks until the download reaches a terminal status.
func waitFinished(t *testing.T, st *store.Store, id string) *domain.Download {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		dl, err := st.Get(id)
		if err == nil && dl.Finished() {
			return dl
		}
		select {
		case <-deadline:
			t.Fatalf("download %s did not finish, last state %+v", id, dl)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDownloadCompletes(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d, st := newTestDownloader(t)

	var progress []int
	seen := make(chan struct{}, 1)
	unsubscribe := st.Subscribe(func(snapshot []*domain.Download) {
		if len(snapshot) == 0 {
			return
		}
		if snapshot[0].Status == domain.StatusDownloading {
			progress = append(progress, snapshot[0].Progress)
		}
		if snapshot[0].Finished() {
			select {
			case seen <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	dl, err := d.Start(context.Background(), Request{MovieID: "m1", Title: "Queen of Katwe", SourceURL: srv.URL + "/v.mp4"})
	if err != nil {
		t.Fatalf("Start() unexpected error = %v", err)
	}
	if dl.Status != domain.StatusPending || dl.ID == "" {
		t.Errorf("Start() = %+v, want pending with id", dl)
	}

	got := waitFinished(t, st, dl.ID)
	<-seen

	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.Error)
	}
	if got.FileSize != int64(len(payload)) || got.Progress != 100 || got.DownloadedAt == 0 {
		t.Errorf("completed download = %+v", got)
	}

	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Errorf("progress not strictly increasing: %v", progress)
			break
		}
	}

	data, err := os.ReadFile(d.Path(dl.ID))
	if err != nil || len(data) != len(payload) {
		t.Errorf("file size = %d, err = %v, want %d", len(data), err, len(payload))
	}
}

func TestDownloadFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d, st := newTestDownloader(t)

	dl, err := d.Start(context.Background(), Request{MovieID: "m1", SourceURL: srv.URL})
	if err != nil {
		t.Fatalf("Start() unexpected error = %v", err)
	}

	got := waitFinished(t, st, dl.ID)
	if got.Status != domain.StatusFailed || got.Error == "" {
		t.Errorf("download = %+v, want failed with error", got)
	}
	if _, err := os.Stat(d.Path(dl.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestStartValidatesSource(t *testing.T) {
	d, _ := newTestDownloader(t)
	if _, err := d.Start(context.Background(), Request{MovieID: "m1"}); !errors.Is(err, ErrNoSource) {
		t.Errorf("Start() error = %v, want %v", err, ErrNoSource)
	}
}

func TestConcurrentEpisodesOfOneTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("episode"))
	}))
	defer srv.Close()

	d, st := newTestDownloader(t)

	first, err := d.Start(context.Background(), Request{MovieID: "s1", Season: 1, Episode: 1, SourceURL: srv.URL})
	if err != nil {
		t.Fatalf("Start(ep1) unexpected error = %v", err)
	}
	second, err := d.Start(context.Background(), Request{MovieID: "s1", Season: 1, Episode: 2, SourceURL: srv.URL})
	if err != nil {
		t.Fatalf("Start(ep2) unexpected error = %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("episodes share id %s", first.ID)
	}

	for _, id := range []string{first.ID, second.ID} {
		if got := waitFinished(t, st, id); got.Status != domain.StatusCompleted {
			t.Errorf("download %s status = %s, want completed", id, got.Status)
		}
	}
}

func TestRemoveCancelsAndDeletes(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d, st := newTestDownloader(t)

	dl, err := d.Start(context.Background(), Request{MovieID: "m1", SourceURL: srv.URL})
	if err != nil {
		t.Fatalf("Start() unexpected error = %v", err)
	}

	if err := d.Remove(dl.ID); err != nil {
		t.Fatalf("Remove() unexpected error = %v", err)
	}
	if _, err := st.Get(dl.ID); !errors.Is(err, store.ErrDownloadNotFound) {
		t.Errorf("Get() after Remove error = %v, want %v", err, store.ErrDownloadNotFound)
	}
	if _, err := os.Stat(d.Path(dl.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Remove: %v", err)
	}
	if err := d.Remove(dl.ID); !errors.Is(err, store.ErrDownloadNotFound) {
		t.Errorf("Remove() twice error = %v, want %v", err, store.ErrDownloadNotFound)
	}
}

func TestCloseRejectsNewDownloads(t *testing.T) {
	d, _ := newTestDownloader(t)
	d.Close()

	if _, err := d.Start(context.Background(), Request{MovieID: "m1", SourceURL: "http://example.invalid"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestProgressWriterReportsOnlyChanges(t *testing.T) {
	var calls []int
	w := &progressWriter{total: 1000, onChange: func(p int) { calls = append(calls, p) }}

	for i := 0; i < 100; i++ {
		_, _ = w.Write(make([]byte, 10))
	}

	if len(calls) != 100 || calls[0] != 1 || calls[99] != 100 {
		t.Errorf("onChange calls = %d (first %v)", len(calls), calls[:1])
	}

	unknown := &progressWriter{onChange: func(int) { t.Error("onChange called with unknown total") }}
	_, _ = unknown.Write(make([]byte, 10))
}

func TestFailInterrupted(t *testing.T) {
	d, st := newTestDownloader(t)
	_ = st.Add(&domain.Download{ID: "a", Status: domain.StatusDownloading, Progress: 40})
	_ = st.Add(&domain.Download{ID: "b", Status: domain.StatusCompleted, Progress: 100})

	if n := d.FailInterrupted(); n != 1 {
		t.Errorf("FailInterrupted() = %d, want 1", n)
	}
	if got, _ := st.Get("a"); got.Status != domain.StatusFailed {
		t.Errorf("interrupted download status = %s, want failed", got.Status)
	}
	if got, _ := st.Get("b"); got.Status != domain.StatusCompleted {
		t.Errorf("completed download status = %s, want completed", got.Status)
	}
}
