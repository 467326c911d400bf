// Package inbox watches a drop folder and ingests recordings placed in it.
package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
)

const failedDir = "failed"

// Ingester stores a recording and runs the pipeline over it.
type Ingester interface {
	UploadAudio(ctx context.Context, filename, contentType string, r io.Reader) (audio.Object, error)
	Ingest(ctx context.Context, ownerID, audioRef string) (*ingest.Result, error)
	DiscardAudio(ctx context.Context, ref string) error
}

// EventCallback is called after each processed file. err is nil on success.
type EventCallback func(name string, res *ingest.Result, err error)

// Config configures a Watcher.
type Config struct {
	Dir   string
	Owner string
	// Settle is how long a file must stay quiet before it is picked up.
	Settle time.Duration
}

// Watcher ingests audio files dropped into a directory. Ingested files are
// removed; files the pipeline rejects move to the failed/ subdirectory.
type Watcher struct {
	cfg    Config
	svc    Ingester
	logger *slog.Logger
	cb     EventCallback
}

// New creates a Watcher. cb may be nil.
func New(cfg Config, svc Ingester, logger *slog.Logger, cb EventCallback) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, svc: svc, logger: logger, cb: cb}
}

// Watch processes files already in the inbox, then watches it until ctx is
// cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.cfg.Dir, failedDir), 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return err
	}

	w.logger.Info("inbox: started", slog.String("dir", w.cfg.Dir))
	w.Scan(ctx)

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(w.cfg.Settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(w.cfg.Settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			w.logger.Info("inbox: stopped")
			return nil

		case <-settleCh:
			for name := range pending {
				delete(pending, name)
				w.process(ctx, name)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !accept(name) {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// Scan ingests every audio file currently in the inbox.
func (w *Watcher) Scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("inbox: scan failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !accept(e.Name()) {
			continue
		}
		w.process(ctx, e.Name())
	}
}

func (w *Watcher) process(ctx context.Context, name string) {
	src := filepath.Join(w.cfg.Dir, name)
	res, err := w.ingest(ctx, src, name)
	switch {
	case err == nil:
		if rmErr := os.Remove(src); rmErr != nil {
			w.logger.Warn("inbox: remove failed", slog.String("file", name), slog.String("error", rmErr.Error()))
		}
		w.logger.Info("inbox: ingested",
			slog.String("file", name),
			slog.String("memory_id", res.Memory.ID),
			slog.Bool("degraded", res.Degraded()))
	case errors.Is(err, os.ErrNotExist):
		return
	default:
		w.logger.Warn("inbox: ingest failed", slog.String("file", name), slog.String("error", err.Error()))
		if mvErr := os.Rename(src, filepath.Join(w.cfg.Dir, failedDir, name)); mvErr != nil {
			w.logger.Warn("inbox: move to failed/ failed", slog.String("file", name), slog.String("error", mvErr.Error()))
		}
	}
	if w.cb != nil {
		w.cb(name, res, err)
	}
}

func (w *Watcher) ingest(ctx context.Context, src, name string) (*ingest.Result, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	obj, err := w.svc.UploadAudio(ctx, name, audio.ContentType(name), f)
	f.Close()
	if err != nil {
		return nil, err
	}
	res, err := w.svc.Ingest(ctx, w.cfg.Owner, obj.Ref)
	if err != nil {
		// The source file is parked in failed/, so the uploaded copy is unreferenced.
		if dErr := w.svc.DiscardAudio(ctx, obj.Ref); dErr != nil {
			w.logger.Warn("inbox: upload not discarded", slog.String("audio_ref", obj.Ref), slog.String("error", dErr.Error()))
		}
		return nil, err
	}
	return res, nil
}

// accept skips hidden and partial files.
func accept(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") {
		return false
	}
	return audio.IsAudioFile(name)
}
