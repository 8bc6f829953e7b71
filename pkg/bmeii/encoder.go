package bmeii

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bmeview/internal/models"
)

// Encode writes a volume with the given header and samples to w.
// Samples beyond len(samples) up to header.Samples() are written as zero.
func Encode(w io.Writer, header models.VolumeHeader, samples []int16, opts Options) error {
	opts = opts.withDefaults()

	if err := header.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if uint64(len(samples)) > header.Samples() {
		return fmt.Errorf("got %d samples, header declares %d", len(samples), header.Samples())
	}

	raw := rawHeader{
		Rows:           header.Rows,
		Cols:           header.Cols,
		Slices:         header.Slices,
		PixelSpacingX:  header.PixelSpacingX,
		PixelSpacingY:  header.PixelSpacingY,
		SliceThickness: header.SliceThickness,
	}
	if err := binary.Write(w, opts.ByteOrder, &raw); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	payload := make([]byte, header.PayloadBytes(opts.Layout))
	for i, s := range samples {
		opts.ByteOrder.PutUint16(payload[2*i:], uint16(s))
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}

	return nil
}

// WriteFile encodes a volume to path, compressing it when path ends in
// GzipSuffix or ZstdSuffix.
func WriteFile(path string, header models.VolumeHeader, samples []int16, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(path, GzipSuffix):
		zw := gzip.NewWriter(f)
		if err := Encode(zw, header, samples, opts); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	case strings.HasSuffix(path, ZstdSuffix):
		zw, err := zstd.NewWriter(f, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return err
		}
		if err := Encode(zw, header, samples, opts); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	default:
		if err := Encode(f, header, samples, opts); err != nil {
			return err
		}
	}

	return f.Close()
}
