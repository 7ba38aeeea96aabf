package converter

import (
	"fmt"
	"time"

	"github.com/gen2brain/go-fitz"

	"liteconvert/contracts"
	"liteconvert/files_manager"
)

// pdfToImages rasterizes selected PDF pages into one image file per page.
// A range that selects no valid pages falls back to every page. Page failures
// are collected individually; the job fails as a whole if any page failed,
// while surviving pages stay listed in Outputs. Cancellation is honored
// between pages.
func pdfToImages(job contracts.JobSpec, targetExt string, progress contracts.ProgressFunc, cancelled contracts.CancelFunc) contracts.ConversionResult {
	start := time.Now()

	doc, err := fitz.New(job.InputPath)
	if err != nil {
		return failed(start, fmt.Sprintf("opening %s: %v", job.InputPath, err))
	}
	defer doc.Close()

	pages := files_manager.ParsePageRange(job.PageRange, doc.NumPage())
	if len(pages) == 0 {
		pages = files_manager.ParsePageRange("", doc.NumPage())
	}

	dpi := float64(job.DPI)
	if dpi < 72 {
		dpi = 72
	}

	var res contracts.ConversionResult
	for i, pageNo := range pages {
		if cancelled.Cancelled() {
			break
		}
		out, err := rasterizePage(doc, job, pageNo, targetExt, dpi)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", pageNo, err))
		} else {
			res.Outputs = append(res.Outputs, out)
		}
		progress.Report(float64(i+1) / float64(len(pages)))
	}

	res.Success = len(res.Errors) == 0
	res.Pages = len(res.Outputs)
	res.Elapsed = time.Since(start)
	return res
}

func rasterizePage(doc *fitz.Document, job contracts.JobSpec, pageNo int, targetExt string, dpi float64) (string, error) {
	ctx := files_manager.NamingContext{InputPath: job.InputPath, Mode: job.Mode, Page: pageNo}
	defaultStem := fmt.Sprintf("%s_page-%d", files_manager.SourceStem(job.InputPath), pageNo)
	out := outputPath(job, ctx, defaultStem, "."+targetExt)

	if job.Policy == contracts.Skip && fileExists(out) {
		return out, nil
	}

	img, err := doc.ImageDPI(pageNo-1, dpi)
	if err != nil {
		return "", fmt.Errorf("rendering: %w", err)
	}
	if err := encodeImage(img, targetExt, job.Quality, out); err != nil {
		return "", err
	}
	return out, nil
}
