package contracts

import "fmt"

// Mode is the closed set of supported conversions. Dispatch is always an
// exhaustive switch over these values, never a label comparison.
type Mode int

const (
	HEICToJPG Mode = iota
	HEICToPNG
	ImagesToPDFMerged
	ImagesToPDFSeparate
	PDFToJPG
	PDFToPNG
)

var modeLabels = [...]string{
	HEICToJPG:           "HEIC → JPG",
	HEICToPNG:           "HEIC → PNG",
	ImagesToPDFMerged:   "JPG/PNG → PDF (single merged)",
	ImagesToPDFSeparate: "JPG/PNG → PDF (separate files)",
	PDFToJPG:            "PDF → JPG",
	PDFToPNG:            "PDF → PNG",
}

// Label returns the user-facing name of the mode, as shown in the mode
// selector and usable as the {mode} naming token.
func (m Mode) Label() string {
	if m < 0 || int(m) >= len(modeLabels) {
		return "unknown"
	}
	return modeLabels[m]
}

func (m Mode) String() string { return m.Label() }

// TargetExt returns the extension (without dot) of files this mode produces.
func (m Mode) TargetExt() string {
	switch m {
	case HEICToJPG, PDFToJPG:
		return "jpg"
	case HEICToPNG, PDFToPNG:
		return "png"
	case ImagesToPDFMerged, ImagesToPDFSeparate:
		return "pdf"
	}
	return ""
}

// ParseMode maps a stored or user-supplied label back to a Mode.
func ParseMode(label string) (Mode, error) {
	for m, l := range modeLabels {
		if l == label {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown conversion mode %q", label)
}

// CollisionPolicy decides what happens when an output path already exists.
type CollisionPolicy int

const (
	Skip CollisionPolicy = iota
	AutoRename
	Overwrite
)

var policyLabels = [...]string{
	Skip:       "Skip",
	AutoRename: "Auto-rename",
	Overwrite:  "Overwrite",
}

func (p CollisionPolicy) String() string {
	if p < 0 || int(p) >= len(policyLabels) {
		return "unknown"
	}
	return policyLabels[p]
}

func ParseCollisionPolicy(label string) (CollisionPolicy, error) {
	for p, l := range policyLabels {
		if l == label {
			return CollisionPolicy(p), nil
		}
	}
	return 0, fmt.Errorf("unknown collision policy %q", label)
}

// PageSize selects the page geometry for images-to-PDF modes. Auto sizes each
// page to its source image; A4 and Letter are fixed physical sizes.
type PageSize int

const (
	PageAuto PageSize = iota
	PageA4
	PageLetter
)

var pageSizeLabels = [...]string{
	PageAuto:   "Auto",
	PageA4:     "A4",
	PageLetter: "Letter",
}

func (s PageSize) String() string {
	if s < 0 || int(s) >= len(pageSizeLabels) {
		return "unknown"
	}
	return pageSizeLabels[s]
}

func ParsePageSize(label string) (PageSize, error) {
	for s, l := range pageSizeLabels {
		if l == label {
			return PageSize(s), nil
		}
	}
	return 0, fmt.Errorf("unknown page size %q", label)
}

// FitMode controls image placement on fixed-size PDF pages: Fit shrinks the
// image to sit inside the content box, Fill scales it to cover the box and
// crops the overflow.
type FitMode int

const (
	Fit FitMode = iota
	Fill
)

var fitLabels = [...]string{
	Fit:  "Fit",
	Fill: "Fill",
}

func (f FitMode) String() string {
	if f < 0 || int(f) >= len(fitLabels) {
		return "unknown"
	}
	return fitLabels[f]
}

func ParseFitMode(label string) (FitMode, error) {
	for f, l := range fitLabels {
		if l == label {
			return FitMode(f), nil
		}
	}
	return 0, fmt.Errorf("unknown fit mode %q", label)
}
