// Package watch re-runs a conversion whenever the volume files of a
// directory change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"bmeview/pkg/bmeii"
)

// DefaultDebounce is how long the directory must stay quiet before a refresh
const DefaultDebounce = 500 * time.Millisecond

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before a refresh
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// Watcher calls a refresh function after volume files in a directory change.
// Refreshes run one at a time on the watcher's goroutine, so a refresh that
// converts into a shared cache directory never overlaps the previous one.
type Watcher struct {
	dir      string
	refresh  func(ctx context.Context)
	debounce time.Duration
	log      zerolog.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching dir. Events are only delivered once Run is called.
func New(dir string, refresh func(ctx context.Context), opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		refresh:  refresh,
		debounce: DefaultDebounce,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w.fsw = fsw

	return w, nil
}

// Run delivers refreshes until ctx is canceled, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("volume changed")

			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			w.log.Info().Str("dir", w.dir).Msg("refreshing")
			w.refresh(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Str("dir", w.dir).Msg("watcher error")
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !bmeii.IsVolume(filepath.Base(event.Name)) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
