package converter

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"

	"liteconvert/contracts"
	"liteconvert/files_manager"
)

const mmPerInch = 25.4

// Fixed page sizes in mm.
var pageSizesMM = map[contracts.PageSize][2]float64{
	contracts.PageA4:     {210, 297},
	contracts.PageLetter: {215.9, 279.4},
}

// MergeImagesToPDF writes exactly one PDF with one page per input image, in
// input order. The operation is atomic: any failure aborts before the output
// file is created.
func MergeImagesToPDF(inputs []string, outPath string, layout contracts.PDFLayout) contracts.ConversionResult {
	start := time.Now()
	if len(inputs) == 0 {
		return failed(start, "no images to merge")
	}
	if err := writeImagesPDF(inputs, outPath, layout); err != nil {
		return failed(start, err.Error())
	}
	return contracts.ConversionResult{
		Success: true,
		Outputs: []string{outPath},
		Elapsed: time.Since(start),
		Pages:   len(inputs),
	}
}

// imageToPDF packs a single image into its own PDF, independently named and
// collision-resolved.
func imageToPDF(job contracts.JobSpec, progress contracts.ProgressFunc) contracts.ConversionResult {
	start := time.Now()

	ctx := files_manager.NamingContext{InputPath: job.InputPath, Mode: job.Mode}
	defaultStem := files_manager.SourceStem(job.InputPath) + "_pdf"
	out := outputPath(job, ctx, defaultStem, ".pdf")

	if job.Policy == contracts.Skip && fileExists(out) {
		return contracts.ConversionResult{
			Success: true,
			Outputs: []string{out},
			Elapsed: time.Since(start),
			Pages:   1,
		}
	}

	if err := writeImagesPDF([]string{job.InputPath}, out, job.Layout()); err != nil {
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

func writeImagesPDF(inputs []string, outPath string, layout contracts.PDFLayout) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "mm"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, src := range inputs {
		if err := addImagePage(pdf, src, i, layout); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}
	return nil
}

// addImagePage lays one image onto one page. Auto page size wraps the image
// at its own resolution plus margins; fixed sizes place the image into the
// margin-inset content box per the fit mode.
func addImagePage(pdf *gofpdf.Fpdf, src string, index int, layout contracts.PDFLayout) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}

	dpi := imageDPI(src)
	imgW := float64(cfg.Width) / dpi * mmPerInch
	imgH := float64(cfg.Height) / dpi * mmPerInch
	margin := float64(max(0, layout.MarginsMM))

	size, fixed := pageSizesMM[layout.PageSize]

	var pageW, pageH float64
	var x, y, drawW, drawH float64
	fillCrop := false

	if fixed {
		pageW, pageH = size[0], size[1]
		cw := pageW - 2*margin
		ch := pageH - 2*margin
		if cw <= 0 || ch <= 0 {
			return fmt.Errorf("margins of %dmm leave no printable area on %s", layout.MarginsMM, layout.PageSize)
		}
		switch layout.Fit {
		case contracts.Fill:
			// Scale to cover the content box, cropping the overflow.
			x, y, drawW, drawH = margin, margin, cw, ch
			fillCrop = true
		default:
			// Shrink-only fit, centered.
			scale := math.Min(cw/imgW, ch/imgH)
			if scale > 1 {
				scale = 1
			}
			drawW, drawH = imgW*scale, imgH*scale
			x = margin + (cw-drawW)/2
			y = margin + (ch-drawH)/2
		}
	} else {
		pageW, pageH = imgW+2*margin, imgH+2*margin
		x, y, drawW, drawH = margin, margin, imgW, imgH
	}

	reader, imageType, err := pageImageReader(data, format, fillCrop, drawW, drawH, dpi, layout.Quality)
	if err != nil {
		return err
	}

	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pageW, Ht: pageH})
	name := fmt.Sprintf("img_%d", index)
	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, reader)
	pdf.ImageOptions(name, x, y, drawW, drawH, false, opts, 0, "")
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("placing image: %w", err)
	}
	return nil
}

// pageImageReader prepares the stream handed to gofpdf. JPEG and PNG pass
// through untouched. A Fill-mode crop forces a re-encode: JPEG sources stay
// JPEG at the layout quality, everything else becomes PNG.
func pageImageReader(data []byte, format string, fillCrop bool, boxWmm, boxHmm, dpi float64, quality int) (*bytes.Reader, string, error) {
	if !fillCrop {
		switch format {
		case "jpeg":
			return bytes.NewReader(data), "JPG", nil
		case "png":
			return bytes.NewReader(data), "PNG", nil
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding: %w", err)
	}
	if fillCrop {
		pxW := int(math.Round(boxWmm / mmPerInch * dpi))
		pxH := int(math.Round(boxHmm / mmPerInch * dpi))
		img = imaging.Fill(img, max(1, pxW), max(1, pxH), imaging.Center, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if fillCrop && format == "jpeg" {
		if quality < 1 || quality > 100 {
			quality = 90
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("re-encoding: %w", err)
		}
		return bytes.NewReader(buf.Bytes()), "JPG", nil
	}
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("re-encoding: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), "PNG", nil
}
