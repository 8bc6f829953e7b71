package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Layout selects how the payload of a .bmeii file is laid out on disk
type Layout int

const (
	// LayoutLegacy reads rows*cols*slices*8 payload bytes, decodes the first
	// rows*cols*slices int16 values and only ever exposes the first plane.
	LayoutLegacy Layout = iota

	// LayoutDense reads rows*cols*slices*2 payload bytes and exposes every slice.
	LayoutDense
)

// String returns the configuration name of the layout
func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutDense:
		return "dense"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// ParseLayout converts a configuration name into a Layout
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "legacy":
		return LayoutLegacy, nil
	case "dense":
		return LayoutDense, nil
	default:
		return LayoutLegacy, fmt.Errorf("unknown payload layout %q (must be legacy or dense)", s)
	}
}

// VolumeHeader is the fixed 24-byte header at the start of every .bmeii file
type VolumeHeader struct {
	// Rows, Cols and Slices are the declared dimensions of the volume
	Rows   uint32
	Cols   uint32
	Slices uint32

	// PixelSpacingX and PixelSpacingY are the in-plane pixel spacing in mm.
	// They are carried along but never interpreted.
	PixelSpacingX float32
	PixelSpacingY float32

	// SliceThickness is the physical thickness of a slice in mm
	SliceThickness float32
}

// Samples returns the number of declared sample positions
func (h VolumeHeader) Samples() uint64 {
	return uint64(h.Rows) * uint64(h.Cols) * uint64(h.Slices)
}

// PlaneSamples returns the number of samples in one rows x cols plane
func (h VolumeHeader) PlaneSamples() uint64 {
	return uint64(h.Rows) * uint64(h.Cols)
}

// PayloadBytes returns the number of payload bytes that follow the header
func (h VolumeHeader) PayloadBytes(layout Layout) uint64 {
	if layout == LayoutDense {
		return h.Samples() * 2
	}
	return h.Samples() * 8
}

// Validate checks that every declared dimension is positive
func (h VolumeHeader) Validate() error {
	if h.Rows == 0 || h.Cols == 0 || h.Slices == 0 {
		return fmt.Errorf("dimensions must be positive, got rows=%d cols=%d slices=%d",
			h.Rows, h.Cols, h.Slices)
	}
	return nil
}

// Volume is a decoded .bmeii file
type Volume struct {
	// Header is the parsed file header
	Header VolumeHeader

	// Layout is the payload layout the samples were decoded with
	Layout Layout

	// Samples holds Header.Samples() decoded values in file order
	Samples []int16
}

// Planes returns how many rows x cols planes can be addressed.
// Legacy volumes only ever expose their first plane.
func (v *Volume) Planes() int {
	if v.Layout == LayoutLegacy {
		return 1
	}
	return int(v.Header.Slices)
}

// Plane reshapes plane i into a rows x cols matrix in row-major order
func (v *Volume) Plane(i int) (*mat.Dense, error) {
	if i < 0 || i >= v.Planes() {
		return nil, fmt.Errorf("plane %d out of range [0, %d)", i, v.Planes())
	}

	rows := int(v.Header.Rows)
	cols := int(v.Header.Cols)
	size := rows * cols
	start := i * size
	if start+size > len(v.Samples) {
		return nil, fmt.Errorf("plane %d needs %d samples, volume holds %d", i, start+size, len(v.Samples))
	}

	data := make([]float64, size)
	for j, s := range v.Samples[start : start+size] {
		data[j] = float64(s)
	}

	return mat.NewDense(rows, cols, data), nil
}

// PlaneStats summarises the value range of a single plane
type PlaneStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// RenderedImage describes one raster written to the cache directory
type RenderedImage struct {
	// Source is the .bmeii file the raster was rendered from
	Source string

	// Path is where the raster was written
	Path string

	// Stem is the source file name without its volume extensions
	Stem string

	// Rows and Cols are the pixel grid dimensions of the raster
	Rows int
	Cols int

	// Colormap is the palette name used for rendering
	Colormap string
}

// ConversionJob is an ordered list of files submitted together for conversion
type ConversionJob struct {
	// ID identifies the job in logs
	ID uuid.UUID

	// Paths are the input files in submission order
	Paths []string

	// CacheDir is the directory the rasters are written to
	CacheDir string

	// Colormap is the palette name applied to every file
	Colormap string

	// Workers is the size of the worker pool
	Workers int

	// CreatedAt is when the job was submitted
	CreatedAt time.Time
}

// NewConversionJob creates a job with a fresh ID
func NewConversionJob(paths []string, cacheDir, colormap string, workers int) ConversionJob {
	return ConversionJob{
		ID:        uuid.New(),
		Paths:     append([]string(nil), paths...),
		CacheDir:  cacheDir,
		Colormap:  colormap,
		Workers:   workers,
		CreatedAt: time.Now(),
	}
}
