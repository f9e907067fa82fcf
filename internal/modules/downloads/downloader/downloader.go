// Package downloader streams video files to local disk and reports progress
// through the download store.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/store"
)

var (
	ErrClosed      = errors.New("downloader closed")
	ErrNoSource    = errors.New("source URL is required")
	errCancelled   = errors.New("download cancelled")
	errInterrupted = errors.New("download interrupted by restart")
)

// Request describes what to download and the metadata shown offline.
type Request struct {
	MovieID      string
	Title        string
	Poster       string
	Backdrop     string
	EpisodeTitle string
	Season       int
	Episode      int
	SourceURL    string
}

type Downloader struct {
	store  *store.Store
	dir    string
	client *http.Client
	logger logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	active map[string]*transfer
	closed bool
	wg     sync.WaitGroup
}

// transfer is a running download goroutine.
type transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New(st *store.Store, dir string, client *http.Client, log logger.Logger) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	return &Downloader{
		store:   st,
		dir:     dir,
		client:  client,
		logger:  log,
		now:     time.Now,
		active:  make(map[string]*transfer),
	}
}

// Path is where the file for id is written.
func (d *Downloader) Path(id string) string {
	return filepath.Join(d.dir, id+".mp4")
}

// Start records a pending download and streams it in the background. The
// transfer is not bound to ctx; use Cancel or Close to stop it.
func (d *Downloader) Start(_ context.Context, req Request) (*domain.Download, error) {
	if req.SourceURL == "" {
		return nil, ErrNoSource
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	now := d.now()
	dl := &domain.Download{
		ID:           domain.NewID(req.MovieID, req.Season, req.Episode, now),
		MovieID:      req.MovieID,
		Title:        req.Title,
		Poster:       req.Poster,
		Backdrop:     req.Backdrop,
		EpisodeTitle: req.EpisodeTitle,
		Season:       req.Season,
		Episode:      req.Episode,
		SourceURL:    req.SourceURL,
		Status:       domain.StatusPending,
		CreatedAt:    now.UnixMilli(),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	if err := d.store.Add(dl); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &transfer{cancel: cancel, done: make(chan struct{})}
	d.active[dl.ID] = t
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(ctx, t, dl.ID, dl.SourceURL)

	d.logger.Info().
		Str("downloadId", dl.ID).
		Str("movieId", dl.MovieID).
		Msg("Download started")

	return dl, nil
}

// Cancel stops an in-flight download. It reports whether one was running.
func (d *Downloader) Cancel(id string) bool {
	d.mu.Lock()
	t, ok := d.active[id]
	d.mu.Unlock()

	if ok {
		t.cancel()
	}
	return ok
}

// Remove cancels the download, then deletes its record and file.
func (d *Downloader) Remove(id string) error {
	if _, err := d.store.Get(id); err != nil {
		return err
	}

	d.mu.Lock()
	t, running := d.active[id]
	d.mu.Unlock()
	if running {
		t.cancel()
		<-t.done
	}

	if err := d.store.Remove(id); err != nil && !errors.Is(err, store.ErrDownloadNotFound) {
		return err
	}
	if err := os.Remove(d.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove download file: %w", err)
	}
	return nil
}

// FailInterrupted marks records left unfinished by a previous process as
// failed and returns how many were changed. Call it before Start.
func (d *Downloader) FailInterrupted() int {
	n := 0
	for _, dl := range d.store.List() {
		if dl.Finished() {
			continue
		}
		d.update(dl.ID, func(dl *domain.Download) {
			dl.Status = domain.StatusFailed
			dl.Error = errInterrupted.Error()
		})
		_ = os.Remove(d.Path(dl.ID))
		n++
	}
	return n
}

// Close cancels every running download and waits for them to stop.
func (d *Downloader) Close() {
	d.mu.Lock()
	d.closed = true
	for _, t := range d.active {
		t.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Downloader) run(ctx context.Context, t *transfer, id, sourceURL string) {
	defer d.wg.Done()
	defer func() {
		t.cancel()
		d.mu.Lock()
		delete(d.active, id)
		d.mu.Unlock()
		close(t.done)
	}()

	size, err := d.fetch(ctx, id, sourceURL)
	if err != nil {
		if ctx.Err() != nil {
			err = errCancelled
		}
		_ = os.Remove(d.Path(id))
		d.logger.Warn().
			Err(err).
			Str("downloadId", id).
			Msg("Download failed")
		d.update(id, func(dl *domain.Download) {
			dl.Status = domain.StatusFailed
			dl.Error = err.Error()
		})
		return
	}

	d.update(id, func(dl *domain.Download) {
		dl.Status = domain.StatusCompleted
		dl.Progress = 100
		dl.FileSize = size
		dl.DownloadedAt = d.now().UnixMilli()
	})

	d.logger.Info().
		Str("downloadId", id).
		Int("bytes", int(size)).
		Msg("Download completed")
}

func (d *Downloader) fetch(ctx context.Context, id, sourceURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid source URL: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	d.update(id, func(dl *domain.Download) {
		dl.Status = domain.StatusDownloading
		dl.Progress = 0
	})

	f, err := os.Create(d.Path(id))
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	pw := &progressWriter{
		total: resp.ContentLength,
		onChange: func(percent int) {
			d.update(id, func(dl *domain.Download) { dl.Progress = percent })
		},
	}

	written, err := io.Copy(io.MultiWriter(f, pw), resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return written, nil
}

func (d *Downloader) update(id string, fn func(dl *domain.Download)) {
	if _, err := d.store.Update(id, fn); err != nil && !errors.Is(err, store.ErrDownloadNotFound) {
		d.logger.Error().
			Err(err).
			Str("downloadId", id).
			Msg("Failed to update download record")
	}
}

// progressWriter calls onChange when the integer percentage moves. It is
// silent when the total size is unknown.
type progressWriter struct {
	total    int64
	written  int64
	percent  int
	onChange func(percent int)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total <= 0 {
		return len(p), nil
	}

	percent := int(w.written * 100 / w.total)
	if percent > 100 {
		percent = 100
	}
	if percent != w.percent {
		w.percent = percent
		w.onChange(percent)
	}
	return len(p), nil
}
