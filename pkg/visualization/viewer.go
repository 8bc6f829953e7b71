package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"bmeview/internal/models"
	"bmeview/pkg/colormap"
)

// RasterExtension is the file extension of rendered rasters
const RasterExtension = ".png"

// Viewer renders the planes of a decoded volume through a colormap
type Viewer struct {
	// volume is the decoded source volume
	volume *models.Volume

	// cmap colors the normalised plane values
	cmap colormap.Map
}

// NewViewer creates a viewer for volume using cmap
func NewViewer(volume *models.Volume, cmap colormap.Map) *Viewer {
	return &Viewer{
		volume: volume,
		cmap:   cmap,
	}
}

// Planes returns the number of planes that can be rendered
func (v *Viewer) Planes() int {
	return v.volume.Planes()
}

// RenderPlane renders plane i of the volume
func (v *Viewer) RenderPlane(i int) (*image.NRGBA, error) {
	plane, err := v.volume.Plane(i)
	if err != nil {
		return nil, err
	}
	return Render(plane, v.cmap), nil
}

// SavePlaneSequence renders every plane into outputDir as <stem>_<index>.png
// and returns the written paths.
func (v *Viewer) SavePlaneSequence(outputDir, stem string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	var written []string
	for i := 0; i < v.Planes(); i++ {
		img, err := v.RenderPlane(i)
		if err != nil {
			return written, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d%s", stem, i, RasterExtension))
		if err := WriteFile(filename, img); err != nil {
			return written, err
		}
		written = append(written, filename)
	}

	return written, nil
}

// Render maps a plane onto an image with one pixel per matrix element.
// Values are normalised over the plane's own min/max range; a constant
// plane maps every pixel to the low end of the colormap.
func Render(plane *mat.Dense, cmap colormap.Map) *image.NRGBA {
	rows, cols := plane.Dims()
	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))

	values := flatten(plane)
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			t := 0.0
			if span > 0 {
				t = (values[y*cols+x] - lo) / span
			}
			img.SetNRGBA(x, y, cmap.At(t))
		}
	}

	return img
}

// Summarize computes value statistics for a plane
func Summarize(plane *mat.Dense) models.PlaneStats {
	values := flatten(plane)
	mean, std := stat.MeanStdDev(values, nil)
	return models.PlaneStats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}

// flatten copies the plane into a row-major slice
func flatten(plane *mat.Dense) []float64 {
	rows, cols := plane.Dims()
	values := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		values = append(values, mat.Row(nil, y, plane)...)
	}
	return values
}

// encodeRaster is the encoder used by WriteFile; tests replace it
var encodeRaster = Encode

// WriteFile writes img as PNG to filename, replacing any existing file.
// The raster is written to a temporary file in the same directory and
// renamed into place, so filename only ever holds a complete image.
func WriteFile(filename string, img *image.NRGBA) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encodeRaster(tmp, img); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
