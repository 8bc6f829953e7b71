package conversion

import (
	"time"

	"bmeview/internal/models"
)

// Result is the outcome of converting one file
type Result struct {
	// Source is the input path
	Source string

	// Image describes the written raster; zero when Err is set
	Image models.RenderedImage

	// Err is why the file was skipped
	Err error
}

// OK reports whether the file was rendered
func (r Result) OK() bool {
	return r.Err == nil
}

// Report is the outcome of one batch
type Report struct {
	Job     models.ConversionJob
	Results []Result
	Elapsed time.Duration
}

// Paths returns the raster path of every input in order, with an empty
// string for files that were skipped.
func (r *Report) Paths() []string {
	paths := make([]string, len(r.Results))
	for i, res := range r.Results {
		if res.OK() {
			paths[i] = res.Image.Path
		}
	}
	return paths
}

// Images returns the rendered images in input order, omitting failures
func (r *Report) Images() []models.RenderedImage {
	var images []models.RenderedImage
	for _, res := range r.Results {
		if res.OK() {
			images = append(images, res.Image)
		}
	}
	return images
}

// Succeeded returns the number of rendered files
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the results of skipped files in input order
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}
