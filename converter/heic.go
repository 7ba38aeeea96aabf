package converter

import (
	"fmt"
	"os"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"liteconvert/contracts"
)

var vipsOnce sync.Once

// startVips initializes libvips on first HEIC use. There is no matching
// shutdown; the library lives for the process.
func startVips() {
	vipsOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelError)
		vips.Startup(nil)
	})
}

// convertHEIC decodes a HEIC/HEIF source through libvips and exports it as
// JPEG or PNG at out.
func convertHEIC(job contracts.JobSpec, targetExt, out string) error {
	startVips()

	ref, err := vips.NewImageFromFile(job.InputPath)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", job.InputPath, err)
	}
	defer ref.Close()

	if job.PreserveOrientation {
		// Bakes the EXIF orientation into pixel data; a missing or broken
		// tag leaves the image untouched.
		if err := ref.AutoRotate(); err != nil {
			return fmt.Errorf("applying orientation of %s: %w", job.InputPath, err)
		}
	}

	var buf []byte
	if targetExt == "jpg" {
		params := vips.NewJpegExportParams()
		if job.Quality >= 1 && job.Quality <= 100 {
			params.Quality = job.Quality
		}
		buf, _, err = ref.ExportJpeg(params)
	} else {
		buf, _, err = ref.ExportPng(vips.NewPngExportParams())
	}
	if err != nil {
		return fmt.Errorf("exporting %s: %w", job.InputPath, err)
	}

	if err := os.WriteFile(out, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
