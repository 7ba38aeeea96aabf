package converter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liteconvert/contracts"
)

func writeTestPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeTestJPEG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func baseJob(t *testing.T, input string, mode contracts.Mode) contracts.JobSpec {
	t.Helper()
	return contracts.JobSpec{
		InputPath:     input,
		Mode:          mode,
		OutputDir:     t.TempDir(),
		NamingPattern: "{name}",
		Policy:        contracts.AutoRename,
		Quality:       90,
		DPI:           150,
	}
}

func TestConvertImageToJPG(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shot.png")
	writeTestPNG(t, src, 12, 8, color.NRGBA{R: 200, A: 255})

	job := baseJob(t, src, contracts.HEICToJPG)
	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Len(t, res.Outputs, 1)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, filepath.Join(job.OutputDir, "shot.jpg"), res.Outputs[0])

	f, err := os.Open(res.Outputs[0])
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 12, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestConvertImageToPNGKeepsAlpha(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ghost.png")
	writeTestPNG(t, src, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	job := baseJob(t, src, contracts.HEICToPNG)
	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	data, err := os.ReadFile(res.Outputs[0])
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Less(t, a, uint32(0xffff), "alpha channel must survive PNG output")
}

func TestConvertSkipPolicyLeavesExistingFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shot.png")
	writeTestPNG(t, src, 4, 4, color.NRGBA{G: 100, A: 255})

	job := baseJob(t, src, contracts.HEICToJPG)
	job.Policy = contracts.Skip
	existing := filepath.Join(job.OutputDir, "shot.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("sentinel"), 0o644))

	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success)
	assert.Equal(t, []string{existing}, res.Outputs)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data), "skip must not rewrite the file")
}

func TestConvertOverwriteIsPathStable(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shot.png")
	writeTestPNG(t, src, 4, 4, color.NRGBA{B: 100, A: 255})

	job := baseJob(t, src, contracts.HEICToJPG)
	job.Policy = contracts.Overwrite

	first := ConvertJob(job, nil, nil)
	second := ConvertJob(job, nil, nil)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Outputs, second.Outputs)
}

func TestConvertCorruptSourceFails(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	res := ConvertJob(baseJob(t, src, contracts.HEICToJPG), nil, nil)

	assert.False(t, res.Success)
	assert.Empty(t, res.Outputs)
	assert.NotEmpty(t, res.Errors)
}

func TestConvertUnsupportedCombination(t *testing.T) {
	src := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4"), 0o644))

	res := ConvertJob(baseJob(t, src, contracts.HEICToJPG), nil, nil)

	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "unsupported input/mode combination")
}

func TestMergeImagesToPDF(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.jpg")
	writeTestPNG(t, a, 20, 10, color.NRGBA{R: 255, A: 255})
	writeTestJPEG(t, b, 10, 20, color.NRGBA{B: 255, A: 255})

	out := filepath.Join(dir, "merged.pdf")
	res := MergeImagesToPDF([]string{a, b}, out, contracts.PDFLayout{PageSize: contracts.PageAuto})

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, []string{out}, res.Outputs)
	assert.Equal(t, 2, res.Pages)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Contains(t, string(data), "/Count 2", "merged PDF must hold exactly two pages")
}

func TestMergeImagesToPDFIsAtomic(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	bad := filepath.Join(dir, "bad.png")
	writeTestPNG(t, good, 8, 8, color.NRGBA{A: 255})
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	out := filepath.Join(dir, "merged.pdf")
	res := MergeImagesToPDF([]string{good, bad}, out, contracts.PDFLayout{})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
	assert.NoFileExists(t, out, "a failed merge must not leave partial output")
}

func TestMergeImagesToPDFFixedPageSizes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writeTestPNG(t, src, 400, 100, color.NRGBA{G: 255, A: 255})

	for _, tc := range []struct {
		name   string
		layout contracts.PDFLayout
	}{
		{"a4 fit with margins", contracts.PDFLayout{PageSize: contracts.PageA4, Fit: contracts.Fit, MarginsMM: 10}},
		{"letter fill", contracts.PDFLayout{PageSize: contracts.PageLetter, Fit: contracts.Fill, Quality: 90}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(dir, tc.name+".pdf")
			res := MergeImagesToPDF([]string{src}, out, tc.layout)
			require.True(t, res.Success, "errors: %v", res.Errors)
			assert.FileExists(t, out)
		})
	}
}

func TestMergeImagesToPDFFillKeepsJPEGEncoding(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeTestJPEG(t, src, 300, 200, color.NRGBA{R: 180, A: 255})

	out := filepath.Join(dir, "filled.pdf")
	layout := contracts.PDFLayout{PageSize: contracts.PageA4, Fit: contracts.Fill, Quality: 80}
	res := MergeImagesToPDF([]string{src}, out, layout)

	require.True(t, res.Success, "errors: %v", res.Errors)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DCTDecode", "cropped JPEG pages stay JPEG-compressed")
}

func TestImageToPDFSeparate(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.png")
	writeTestPNG(t, src, 30, 30, color.NRGBA{R: 50, G: 50, B: 50, A: 255})

	job := baseJob(t, src, contracts.ImagesToPDFSeparate)
	job.NamingPattern = "" // exercise the default stem
	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, filepath.Join(job.OutputDir, "page_pdf.pdf"), res.Outputs[0])
}

// makeTestPDF renders n one-color pages through the merge path and returns
// the PDF location.
func makeTestPDF(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	inputs := make([]string, n)
	for i := range inputs {
		p := filepath.Join(dir, "page"+string(rune('a'+i))+".png")
		writeTestPNG(t, p, 40, 60, color.NRGBA{R: uint8(40 * i), A: 255})
		inputs[i] = p
	}
	out := filepath.Join(dir, "doc.pdf")
	res := MergeImagesToPDF(inputs, out, contracts.PDFLayout{})
	require.True(t, res.Success, "fixture PDF: %v", res.Errors)
	return out
}

func TestPDFToPNGRoundTrip(t *testing.T) {
	src := makeTestPDF(t, 3)

	job := baseJob(t, src, contracts.PDFToPNG)
	job.NamingPattern = "{name}_p{page}"
	job.DPI = 100

	var fractions []float64
	res := ConvertJob(job, func(f float64) { fractions = append(fractions, f) }, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Len(t, res.Outputs, 3)
	assert.Equal(t, 3, res.Pages)

	seen := map[string]bool{}
	for i, out := range res.Outputs {
		assert.Equal(t, filepath.Join(job.OutputDir, "doc_p"+string(rune('1'+i))+".png"), out)
		assert.False(t, seen[out], "outputs must be distinct")
		seen[out] = true

		f, err := os.Open(out)
		require.NoError(t, err)
		_, format, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, "png", format)
	}

	// Per-page progress, monotonically non-decreasing, ending at 1.
	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestPDFToJPGPageRange(t *testing.T) {
	src := makeTestPDF(t, 4)

	job := baseJob(t, src, contracts.PDFToJPG)
	job.PageRange = "3-2,9"

	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Len(t, res.Outputs, 2, "pages 2 and 3 selected, 9 dropped")
}

func TestPDFToImagesOutOfRangeFallsBackToAllPages(t *testing.T) {
	src := makeTestPDF(t, 2)

	job := baseJob(t, src, contracts.PDFToPNG)
	job.PageRange = "9"

	res := ConvertJob(job, nil, nil)

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Len(t, res.Outputs, 2, "a range selecting no valid pages converts every page")
}

func TestPDFToImagesCancelBetweenPages(t *testing.T) {
	src := makeTestPDF(t, 3)

	job := baseJob(t, src, contracts.PDFToPNG)
	started := 0
	cancelled := func() bool {
		started++
		return started > 1 // allow exactly one page
	}

	res := ConvertJob(job, nil, cancelled)

	require.True(t, res.Success)
	assert.Len(t, res.Outputs, 1, "cancellation stops before the second page")
}

func TestConvertOpensMissingFile(t *testing.T) {
	job := baseJob(t, filepath.Join(t.TempDir(), "ghost.pdf"), contracts.PDFToPNG)
	res := ConvertJob(job, nil, nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
}
