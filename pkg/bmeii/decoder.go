package bmeii

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bmeview/internal/models"
)

// Extension is the file name extension of volume files
const Extension = ".bmeii"

// Compressed volume suffixes, appended after Extension
const (
	GzipSuffix = ".gz"
	ZstdSuffix = ".zst"
)

// HeaderSize is the size in bytes of the fixed file header
const HeaderSize = 24

// DefaultMaxPayloadBytes caps the payload a header may declare
const DefaultMaxPayloadBytes = 2 << 30

var (
	// ErrNotFound is returned when the volume file does not exist
	ErrNotFound = errors.New("volume not found")

	// ErrUnreadable is returned when the volume file cannot be opened or read
	ErrUnreadable = errors.New("volume unreadable")

	// ErrTruncated is returned when the file ends before the declared payload
	ErrTruncated = errors.New("volume truncated")

	// ErrMalformedHeader is returned when the header declares impossible dimensions
	ErrMalformedHeader = errors.New("malformed volume header")
)

// Options controls how volumes are decoded and encoded
type Options struct {
	// Layout is the payload layout
	Layout models.Layout

	// ByteOrder is the byte order of header fields and samples.
	// Nil means the host byte order.
	ByteOrder binary.ByteOrder

	// MaxPayloadBytes rejects headers that declare a larger payload.
	// Zero means DefaultMaxPayloadBytes.
	MaxPayloadBytes uint64
}

// DefaultOptions returns the options matching files from the acquisition software
func DefaultOptions() Options {
	return Options{
		Layout:          models.LayoutLegacy,
		ByteOrder:       binary.NativeEndian,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
	}
}

func (o Options) withDefaults() Options {
	if o.ByteOrder == nil {
		o.ByteOrder = binary.NativeEndian
	}
	if o.MaxPayloadBytes == 0 {
		o.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return o
}

// ParseByteOrder converts a configuration name into a byte order
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return binary.NativeEndian, nil
	case "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q (must be native, little or big)", s)
	}
}

// rawHeader mirrors the on-disk header
type rawHeader struct {
	Rows           uint32
	Cols           uint32
	Slices         uint32
	PixelSpacingX  float32
	PixelSpacingY  float32
	SliceThickness float32
}

// ReadHeader reads the fixed 24-byte header
func ReadHeader(r io.Reader, order binary.ByteOrder) (models.VolumeHeader, error) {
	if order == nil {
		order = binary.NativeEndian
	}

	var raw rawHeader
	if err := binary.Read(r, order, &raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return models.VolumeHeader{}, fmt.Errorf("%w: header shorter than %d bytes", ErrTruncated, HeaderSize)
		}
		return models.VolumeHeader{}, fmt.Errorf("%w: reading header: %v", ErrUnreadable, err)
	}

	return models.VolumeHeader{
		Rows:           raw.Rows,
		Cols:           raw.Cols,
		Slices:         raw.Slices,
		PixelSpacingX:  raw.PixelSpacingX,
		PixelSpacingY:  raw.PixelSpacingY,
		SliceThickness: raw.SliceThickness,
	}, nil
}

// Decode reads a complete volume from r
func Decode(r io.Reader, opts Options) (*models.Volume, error) {
	opts = opts.withDefaults()

	header, err := ReadHeader(r, opts.ByteOrder)
	if err != nil {
		return nil, err
	}

	if err := header.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	need, ok := payloadBytes(header, opts.Layout)
	if !ok || need > opts.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %dx%dx%d volume exceeds payload limit of %d bytes",
			ErrMalformedHeader, header.Rows, header.Cols, header.Slices, opts.MaxPayloadBytes)
	}

	// LimitReader keeps a lying header from forcing one huge allocation
	payload, err := io.ReadAll(io.LimitReader(r, int64(need)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrUnreadable, err)
	}
	if uint64(len(payload)) < need {
		return nil, fmt.Errorf("%w: payload has %d of %d declared bytes", ErrTruncated, len(payload), need)
	}

	n := header.Samples()
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(opts.ByteOrder.Uint16(payload[2*i:]))
	}

	return &models.Volume{
		Header:  header,
		Layout:  opts.Layout,
		Samples: samples,
	}, nil
}

// payloadBytes is header.PayloadBytes with overflow detection
func payloadBytes(header models.VolumeHeader, layout models.Layout) (uint64, bool) {
	perSample := uint64(8)
	if layout == models.LayoutDense {
		perSample = 2
	}
	hi, samples := bits.Mul64(header.PlaneSamples(), uint64(header.Slices))
	if hi != 0 {
		return 0, false
	}
	hi, need := bits.Mul64(samples, perSample)
	return need, hi == 0
}

// Open decodes the volume stored at path
func Open(path string, opts Options) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, GzipSuffix):
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: gzip: %v", ErrUnreadable, path, err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(path, ZstdSuffix):
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: zstd: %v", ErrUnreadable, path, err)
		}
		defer zr.Close()
		r = zr
	}

	vol, err := Decode(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}

// Stem returns the file name of path without its volume extensions
func Stem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, GzipSuffix)
	base = strings.TrimSuffix(base, ZstdSuffix)
	if strings.HasSuffix(base, Extension) {
		return strings.TrimSuffix(base, Extension)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsVolume reports whether name looks like a volume file
func IsVolume(name string) bool {
	for _, suffix := range []string{Extension, Extension + GzipSuffix, Extension + ZstdSuffix} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Kind returns a short label for the decode error category of err,
// or "" when err is not a decode error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrUnreadable):
		return "unreadable"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrMalformedHeader):
		return "malformed-header"
	default:
		return ""
	}
}
