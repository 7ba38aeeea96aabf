package converter

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"liteconvert/contracts"
	"liteconvert/files_manager"
)

// toImage converts a HEIC or raster source into a JPG or PNG file. One
// output, one page.
func toImage(job contracts.JobSpec, targetExt string, progress contracts.ProgressFunc, cancelled contracts.CancelFunc) contracts.ConversionResult {
	start := time.Now()

	ctx := files_manager.NamingContext{InputPath: job.InputPath, Mode: job.Mode}
	defaultStem := files_manager.SourceStem(job.InputPath) + "_" + targetExt
	out := outputPath(job, ctx, defaultStem, "."+targetExt)

	if job.Policy == contracts.Skip && fileExists(out) {
		return contracts.ConversionResult{
			Success: true,
			Outputs: []string{out},
			Elapsed: time.Since(start),
			Pages:   1,
		}
	}

	var err error
	if files_manager.IsHEIC(job.InputPath) {
		err = convertHEIC(job, targetExt, out)
	} else {
		err = convertRaster(job, targetExt, out)
	}
	if err != nil {
		return failed(start, err.Error())
	}

	progress.Report(1.0)
	return contracts.ConversionResult{
		Success: true,
		Outputs: []string{out},
		Elapsed: time.Since(start),
		Pages:   1,
	}
}

// convertRaster handles JPEG/PNG/WebP/TIFF/BMP sources through the stdlib
// decoder registry.
func convertRaster(job contracts.JobSpec, targetExt, out string) error {
	f, err := os.Open(job.InputPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", job.InputPath, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", job.InputPath, err)
	}

	if job.PreserveOrientation {
		img = orientImage(img, exifOrientation(job.InputPath))
	}
	return encodeImage(img, targetExt, job.Quality, out)
}

// encodeImage writes img to path. JPEG output is flattened to opaque RGB;
// PNG keeps the decoded color model, alpha included.
func encodeImage(img image.Image, targetExt string, quality int, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer dst.Close()

	if targetExt == "jpg" {
		if quality < 1 || quality > 100 {
			quality = 90
		}
		if err := imaging.Encode(dst, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		return nil
	}
	if err := png.Encode(dst, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
