// Package conversion decodes batches of .bmeii files and renders them into a
// shared cache directory with a fixed pool of workers.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bmeview/internal/models"
	"bmeview/pkg/bmeii"
	"bmeview/pkg/colormap"
	"bmeview/pkg/visualization"
)

// DefaultWorkers is the worker pool size used when none is configured
const DefaultWorkers = 4

var (
	// ErrCacheDir is returned when the cache directory cannot be prepared.
	// It fails the whole batch.
	ErrCacheDir = errors.New("cache directory unavailable")

	// ErrCanceled marks a file skipped because the batch context was canceled
	ErrCanceled = errors.New("conversion canceled")

	// ErrPanic marks a file whose conversion panicked
	ErrPanic = errors.New("conversion panicked")
)

// Target describes where and how a single file is rendered
type Target struct {
	// CacheDir receives the raster
	CacheDir string

	// ColormapName is recorded in the rendered image description
	ColormapName string

	// Colormap colors the plane
	Colormap colormap.Map

	// Decode controls how the volume is parsed
	Decode bmeii.Options

	// Plane selects the plane to render. Legacy volumes only have plane 0.
	Plane int
}

// DecodeAndRender decodes the volume at path and writes its colormapped
// raster to target.CacheDir/<stem>.png, replacing any existing file.
// Nothing is written when decoding fails.
func DecodeAndRender(ctx context.Context, path string, target Target) (models.RenderedImage, error) {
	if err := ctx.Err(); err != nil {
		return models.RenderedImage{}, fmt.Errorf("%w: %s", ErrCanceled, path)
	}

	vol, err := bmeii.Open(path, target.Decode)
	if err != nil {
		return models.RenderedImage{}, err
	}

	plane, err := vol.Plane(target.Plane)
	if err != nil {
		return models.RenderedImage{}, fmt.Errorf("%s: %w", path, err)
	}
	img := visualization.Render(plane, target.Colormap)

	if err := ctx.Err(); err != nil {
		return models.RenderedImage{}, fmt.Errorf("%w: %s", ErrCanceled, path)
	}

	stem := bmeii.Stem(path)
	out := filepath.Join(target.CacheDir, stem+visualization.RasterExtension)
	if err := visualization.WriteFile(out, img); err != nil {
		return models.RenderedImage{}, fmt.Errorf("writing raster for %s: %w", path, err)
	}

	rows, cols := plane.Dims()
	return models.RenderedImage{
		Source:   path,
		Path:     out,
		Stem:     stem,
		Rows:     rows,
		Cols:     cols,
		Colormap: target.ColormapName,
	}, nil
}

// Settings configures a Converter
type Settings struct {
	// CacheDir is cleared at the start of every batch and receives the rasters
	CacheDir string

	// Colormap is the registry name of the palette
	Colormap string

	// Workers is the size of the worker pool
	Workers int

	// Plane selects the plane to render for dense volumes
	Plane int

	// Decode controls how volumes are parsed
	Decode bmeii.Options
}

// Option configures optional Converter collaborators
type Option func(*Converter)

// WithLogger sets the logger used for per-file and per-batch events
func WithLogger(log zerolog.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithRegistry resolves the colormap from r instead of the built-in registry
func WithRegistry(r *colormap.Registry) Option {
	return func(c *Converter) {
		c.registry = r
	}
}

// Converter runs conversion batches. Only one batch may run against a
// cache directory at a time; callers must wait for Convert to return before
// starting the next batch on the same directory.
type Converter struct {
	settings Settings
	registry *colormap.Registry
	target   Target
	log      zerolog.Logger

	// process converts one file; tests replace it
	process func(ctx context.Context, path string) (models.RenderedImage, error)
}

// New creates a Converter, resolving the configured colormap
func New(settings Settings, opts ...Option) (*Converter, error) {
	c := &Converter{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}

	if settings.CacheDir == "" {
		return nil, fmt.Errorf("%w: no cache directory configured", ErrCacheDir)
	}
	if settings.Workers <= 0 {
		settings.Workers = DefaultWorkers
	}
	if settings.Colormap == "" {
		settings.Colormap = colormap.DefaultName
	}

	if c.registry == nil {
		r, err := colormap.NewRegistry()
		if err != nil {
			return nil, err
		}
		c.registry = r
	}

	cmap, err := c.registry.Lookup(settings.Colormap)
	if err != nil {
		return nil, err
	}

	c.settings = settings
	c.target = Target{
		CacheDir:     settings.CacheDir,
		ColormapName: settings.Colormap,
		Colormap:     cmap,
		Decode:       settings.Decode,
		Plane:        settings.Plane,
	}
	c.process = func(ctx context.Context, path string) (models.RenderedImage, error) {
		return DecodeAndRender(ctx, path, c.target)
	}

	return c, nil
}

// Settings returns the effective settings
func (c *Converter) Settings() Settings {
	return c.settings
}

// Convert clears the cache directory and converts every path. The report
// lists one result per path in input order regardless of completion order.
// Per-file failures are recorded in the report; only cache directory
// failures abort the batch.
func (c *Converter) Convert(ctx context.Context, paths []string) (*Report, error) {
	job := models.NewConversionJob(paths, c.settings.CacheDir, c.settings.Colormap, c.settings.Workers)
	log := c.log.With().Str("job", job.ID.String()).Logger()

	if err := ClearCache(job.CacheDir); err != nil {
		return nil, err
	}

	log.Info().
		Int("files", len(paths)).
		Int("workers", job.Workers).
		Str("colormap", job.Colormap).
		Str("cache_dir", job.CacheDir).
		Msg("conversion started")

	startTime := time.Now()
	results := make([]Result, len(paths))

	workers := job.Workers
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.run(ctx, log, paths[i])
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := &Report{
		Job:     job,
		Results: results,
		Elapsed: time.Since(startTime),
	}

	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("failed", len(paths)-report.Succeeded()).
		Dur("elapsed", report.Elapsed).
		Msg("conversion finished")

	return report, nil
}

// run converts one file, turning a panic into a failed result
func (c *Converter) run(ctx context.Context, log zerolog.Logger, path string) (res Result) {
	res.Source = path
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Image = models.RenderedImage{}
			res.Err = fmt.Errorf("%w: %s: %v", ErrPanic, path, r)
		}

		if res.Err != nil {
			log.Warn().Err(res.Err).Str("file", path).Str("kind", Kind(res.Err)).Msg("skipping file")
			return
		}
		log.Debug().
			Str("file", path).
			Str("raster", res.Image.Path).
			Int("rows", res.Image.Rows).
			Int("cols", res.Image.Cols).
			Dur("took", time.Since(start)).
			Msg("rendered")
	}()

	res.Image, res.Err = c.process(ctx, path)
	return res
}

// EnsureCache creates the cache directory if it does not exist
func EnsureCache(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDir, err)
	}
	return nil
}

// ClearCache removes every entry of dir and checks that dir is writable
func ClearCache(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDir, err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("%w: %v", ErrCacheDir, err)
		}
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDir, err)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDir, err)
	}

	return nil
}

// Kind returns a short label for the failure category of err
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if k := bmeii.Kind(err); k != "" {
		return k
	}
	switch {
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, ErrCacheDir):
		return "cache-dir"
	default:
		return "error"
	}
}
