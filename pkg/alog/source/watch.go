package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cognicore/alog/pkg/alog/internalerr"
)

// DefaultDebounce is how long a burst of writes must settle before the new
// lines are read.
const DefaultDebounce = 100 * time.Millisecond

// Watcher tails one file. Start delivers every line already in the file, then
// every complete line appended later. A trailing line without a newline is held
// back until it is finished. The knowledge base is append-only, so a truncated
// or replaced file is not re-read; the watcher skips to its new end.
type Watcher struct {
	mu       sync.Mutex
	path     string
	fn       LineFunc
	logger   *zap.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
	offset   int64
	partial  []byte
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	errs     chan error
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the settle time for write bursts.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher for path that calls fn for each line.
func NewWatcher(path string, fn LineFunc, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		fn:       fn,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		watcher:  fw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		errs:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start reads the current contents and begins watching. It does not block.
// The parent directory is watched so editors that replace the file are seen.
// If Start fails the watcher is closed and cannot be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return internalerr.ErrWatcherRunning
	}
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.closeWatcher()
		return err
	}
	if err := w.readNew(); err != nil {
		w.closeWatcher()
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	w.logger.Info("watching file", zap.String("path", w.path), zap.Int64("offset", w.offset))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.closeWatcher()
}

func (w *Watcher) closeWatcher() {
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing watcher", zap.Error(err))
	}
}

// Done is closed when the loop exits.
func (w *Watcher) Done() <-chan struct{} { return w.doneCh }

// Err returns the error that ended the loop, if any. Valid after Done.
func (w *Watcher) Err() error {
	select {
	case err := <-w.errs:
		return err
	default:
		return nil
	}
}

// Offset returns how many bytes of the file have been consumed.
func (w *Watcher) Offset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("file event", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := w.readNew(); err != nil {
				w.logger.Error("reading appended lines", zap.Error(err))
				w.errs <- err
				return
			}
		}
	}
}

// readNew delivers the complete lines appended since the last read.
func (w *Watcher) readNew() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < w.offset {
		w.logger.Warn("file shrank, skipping to its end",
			zap.Int64("offset", w.offset), zap.Int64("size", info.Size()))
		w.offset = info.Size()
		w.partial = nil
		return nil
	}

	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	w.offset += int64(len(data))

	buf := append(w.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(buf[:i], "\r"))
		buf = buf[i+1:]
		if skip(line) {
			continue
		}
		if err := w.fn(line); err != nil {
			w.partial = append([]byte(nil), buf...)
			return err
		}
	}
	w.partial = append([]byte(nil), buf...)
	return nil
}
