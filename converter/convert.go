// Package converter implements the conversion functions. Each function is
// stateless between calls, writes its outputs to the filesystem, and folds
// every failure into the returned ConversionResult instead of an error.
package converter

import (
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"liteconvert/contracts"
	"liteconvert/files_manager"
)

// ConvertJob runs one job according to its mode. Merged-PDF jobs are a
// batch-level fan-in owned by the worker and never reach this dispatch; one
// arriving here is a routing defect and fails like any other bad combination.
func ConvertJob(job contracts.JobSpec, progress contracts.ProgressFunc, cancelled contracts.CancelFunc) contracts.ConversionResult {
	switch job.Mode {
	case contracts.HEICToJPG:
		if files_manager.IsHEIC(job.InputPath) || files_manager.IsImage(job.InputPath) {
			return toImage(job, "jpg", progress, cancelled)
		}
	case contracts.HEICToPNG:
		if files_manager.IsHEIC(job.InputPath) || files_manager.IsImage(job.InputPath) {
			return toImage(job, "png", progress, cancelled)
		}
	case contracts.ImagesToPDFSeparate:
		if files_manager.IsImage(job.InputPath) {
			return imageToPDF(job, progress)
		}
	case contracts.ImagesToPDFMerged:
		return failed(time.Now(), "merged PDF conversion is performed at batch level")
	case contracts.PDFToJPG:
		if files_manager.IsPDF(job.InputPath) {
			return pdfToImages(job, "jpg", progress, cancelled)
		}
	case contracts.PDFToPNG:
		if files_manager.IsPDF(job.InputPath) {
			return pdfToImages(job, "png", progress, cancelled)
		}
	}
	return failed(time.Now(), fmt.Sprintf("unsupported input/mode combination: %s for %q", job.Mode, job.InputPath))
}

func failed(start time.Time, errs ...string) contracts.ConversionResult {
	return contracts.ConversionResult{
		Success: false,
		Errors:  errs,
		Elapsed: time.Since(start),
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// outputPath expands the naming pattern (or the mode default stem) and applies
// the collision policy. ext includes the leading dot.
func outputPath(job contracts.JobSpec, ctx files_manager.NamingContext, defaultStem, ext string) string {
	stem := files_manager.ExpandPattern(job.NamingPattern, ctx)
	if stem == "" {
		stem = defaultStem
	}
	out := files_manager.BuildOutputPath(job.OutputDir, stem, ext)
	return files_manager.ResolveCollision(out, job.Policy)
}
