package visualization

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"image"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	pngSignature  = "\x89PNG\r\n\x1a\n"
	pngColorRGBA  = 6
	pngBitDepth   = 8
	pngFilterNone = 0
)

// Encode writes img as an 8-bit RGBA PNG. Unlike image/png it always keeps
// the alpha channel, even when every pixel is opaque.
func Encode(w io.Writer, img *image.NRGBA) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, pngSignature); err != nil {
		return err
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = pngBitDepth
	ihdr[9] = pngColorRGBA
	if err := writeChunk(bw, "IHDR", ihdr); err != nil {
		return err
	}

	idat := &chunkWriter{w: bw, typ: "IDAT"}
	zw := zlib.NewWriter(idat)
	row := make([]byte, 1+4*width)
	row[0] = pngFilterNone
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		off := img.PixOffset(bounds.Min.X, y)
		copy(row[1:], img.Pix[off:off+4*width])
		if _, err := zw.Write(row); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := idat.flush(); err != nil {
		return err
	}

	if err := writeChunk(bw, "IEND", nil); err != nil {
		return err
	}
	return bw.Flush()
}

func writeChunk(w io.Writer, typ string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], typ)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)

	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write(footer[:])
	return err
}

// chunkWriter buffers compressed image data into IDAT chunks of bounded size
type chunkWriter struct {
	w   io.Writer
	typ string
	buf []byte
}

const maxChunkData = 1 << 16

func (c *chunkWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		room := maxChunkData - len(c.buf)
		if room > len(p) {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
		p = p[room:]
		if len(c.buf) == maxChunkData {
			if err := c.flush(); err != nil {
				return 0, err
			}
		}
	}
	return n, nil
}

func (c *chunkWriter) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	err := writeChunk(c.w, c.typ, c.buf)
	c.buf = c.buf[:0]
	return err
}
