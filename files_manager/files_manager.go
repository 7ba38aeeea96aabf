package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"liteconvert/contracts"
)

// FileKind classifies an input by extension only. A misnamed file is
// classified, and later fails, by its extension.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindHEIC
	KindImage
	KindPDF
)

var heicExts = map[string]bool{
	".heic": true,
	".heif": true,
}

// Raster formats accepted by the image modes. The non-JPEG/PNG entries are
// decodable through the registered golang.org/x/image decoders.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// Classify returns the kind of the file based on its extension.
func Classify(path string) FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case heicExts[ext]:
		return KindHEIC
	case imageExts[ext]:
		return KindImage
	case ext == ".pdf":
		return KindPDF
	}
	return KindUnsupported
}

func IsHEIC(path string) bool  { return Classify(path) == KindHEIC }
func IsImage(path string) bool { return Classify(path) == KindImage }
func IsPDF(path string) bool   { return Classify(path) == KindPDF }

func IsSupported(path string) bool { return Classify(path) != KindUnsupported }

// ScanDir recursively collects supported files under dir in traversal order.
func ScanDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// AppleDouble metadata files carry image extensions but no image data.
		if strings.HasPrefix(info.Name(), "._") {
			return nil
		}
		if IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}

// Dedupe removes duplicate paths, comparing canonical absolute forms. The
// first occurrence wins and input order is preserved.
func Dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		key := canonical(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// DirectoryError reports an output directory that cannot be created or
// written to. It aborts a run before any job starts.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("output directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// EnsureWritableDir creates dir (with ancestors) if absent and probes write
// permission with a sentinel file. Directory creation persists even when the
// probe fails.
func EnsureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DirectoryError{Dir: dir, Err: err}
	}
	sentinel := filepath.Join(dir, ".liteconvert_write_test")
	if err := os.WriteFile(sentinel, []byte("ok"), 0o644); err != nil {
		return &DirectoryError{Dir: dir, Err: err}
	}
	os.Remove(sentinel)
	return nil
}

// ResolveCollision applies the collision policy to a candidate output path.
// Overwrite and Skip return the path unchanged; under Skip the caller checks
// existence and suppresses the write. AutoRename appends _1, _2, ... before
// the extension, lowest free integer first.
func ResolveCollision(path string, policy contracts.CollisionPolicy) string {
	if policy != contracts.AutoRename {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// NamingContext supplies token values for pattern expansion. Index and Page
// are 1-based; zero means the token is not meaningful for this output and
// expands to the empty string.
type NamingContext struct {
	InputPath string
	Mode      contracts.Mode
	Index     int
	Page      int
}

// ExpandPattern substitutes the {name}, {ext}, {mode}, {index} and {page}
// tokens and cleans up separator runs left behind by empty substitutions.
// An empty expansion result signals the caller to fall back to the mode's
// default stem.
func ExpandPattern(pattern string, ctx NamingContext) string {
	stem := SourceStem(ctx.InputPath)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(ctx.InputPath)), ".")

	out := strings.TrimSpace(pattern)
	out = strings.ReplaceAll(out, "{name}", stem)
	out = strings.ReplaceAll(out, "{ext}", ext)
	out = strings.ReplaceAll(out, "{mode}", ctx.Mode.Label())
	out = strings.ReplaceAll(out, "{index}", positional(ctx.Index))
	out = strings.ReplaceAll(out, "{page}", positional(ctx.Page))

	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, " _-.")
}

func positional(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

// SourceStem returns the file name without directory or extension.
func SourceStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// BuildOutputPath joins directory, stem and extension (with dot) into an
// output path, replacing characters that are forbidden on Windows.
func BuildOutputPath(dir, stem, ext string) string {
	safe := stem
	for _, ch := range `\/:*?"<>|` {
		safe = strings.ReplaceAll(safe, string(ch), "_")
	}
	return filepath.Join(dir, safe+ext)
}

// ParsePageRange parses a spec like "1-3,5" into 1-based page numbers.
// Reversed ranges are normalized, malformed tokens are skipped, values beyond
// maxPages are dropped and duplicates collapse to their first occurrence.
// An empty spec means all pages.
func ParsePageRange(spec string, maxPages int) []int {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		all := make([]int, 0, maxPages)
		for i := 1; i <= maxPages; i++ {
			all = append(all, i)
		}
		return all
	}

	var pages []int
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if before, after, found := strings.Cut(token, "-"); found {
			start, err1 := strconv.Atoi(strings.TrimSpace(before))
			end, err2 := strconv.Atoi(strings.TrimSpace(after))
			if err1 != nil || err2 != nil {
				continue
			}
			if start < 1 {
				start = 1
			}
			if end < start {
				start, end = end, start
			}
			for n := start; n <= end; n++ {
				pages = append(pages, n)
			}
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 {
			continue
		}
		pages = append(pages, n)
	}

	seen := make(map[int]bool, len(pages))
	ordered := make([]int, 0, len(pages))
	for _, n := range pages {
		if seen[n] || n > maxPages {
			continue
		}
		seen[n] = true
		ordered = append(ordered, n)
	}
	return ordered
}
