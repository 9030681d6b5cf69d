// Package dialect renders label layouts into printer command streams.
// Two command languages are supported, PPLA and PPLB, selected by
// configuration. Encoders produce the complete stream for a print pass;
// nothing is written incrementally.
package dialect

import (
	"fmt"
	"strings"
)

// Label is one physical label's payload. Up to three labels are printed
// side by side in a single pass.
type Label struct {
	Company     string
	ShortName   string
	ProductCode string
	Barcode     string
}

// Geometry carries the printer parameters every encoder needs.
// Width and height are in print dots (8 dots = 1 mm).
type Geometry struct {
	Darkness int
	Speed    int
	Width    int
	Height   int
}

// DefaultGeometry matches a 105 mm web carrying three 31 mm labels.
var DefaultGeometry = Geometry{
	Darkness: 8,
	Speed:    2,
	Width:    840,
	Height:   176,
}

// Dialect is the closed set of command languages the engine can emit.
type Dialect interface {
	// Name identifies the dialect ("ppla" or "pplb").
	Name() string
	// EncodeLabels renders up to MaxLabelsPerPass labels into one
	// complete command stream.
	EncodeLabels(geo Geometry, labels []Label) ([]byte, error)
	// EncodeTestPattern renders a fixed test label.
	EncodeTestPattern(geo Geometry) ([]byte, error)
	// StatusQuery is the vendor status command used to probe the link.
	StatusQuery() []byte
}

// MaxLabelsPerPass is the number of labels that fit across the web.
const MaxLabelsPerPass = 3

// Multi-up placement constants, in dots.
const (
	labelMarginX = 50
	labelWidthX  = 248
	labelGapX    = 16
	labelStrideX = labelWidthX + labelGapX
)

// LabelOffsets returns the X offset of each label position across the
// web. Offsets depend only on the fixed margin, label width, and gap, so
// identical geometry always yields identical, strictly increasing offsets.
func LabelOffsets(n int) []int {
	if n < 1 {
		return nil
	}
	if n > MaxLabelsPerPass {
		n = MaxLabelsPerPass
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = labelMarginX + i*labelStrideX
	}
	return offsets
}

// Select returns the encoder for the named dialect.
func Select(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "ppla":
		return PPLA{}, nil
	case "pplb", "":
		return PPLB{}, nil
	default:
		return nil, fmt.Errorf("unknown printer dialect %q", name)
	}
}

// sanitizeField strips characters that would corrupt a quoted command
// literal: the quote itself, ASCII control characters, and the dialect
// command introducers. Upstream text is passed through otherwise; field
// width is the caller's problem.
func sanitizeField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '"' || r == '^' || r == '~' || r == '\\':
		case r < 0x20 || r == 0x7F:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// clampGeometry forces darkness and speed into the ranges the print head
// accepts. Width and height are trusted from config.
func clampGeometry(geo Geometry) Geometry {
	if geo.Darkness < 1 {
		geo.Darkness = 1
	} else if geo.Darkness > 15 {
		geo.Darkness = 15
	}
	if geo.Speed < 1 {
		geo.Speed = 1
	} else if geo.Speed > 4 {
		geo.Speed = 4
	}
	if geo.Width <= 0 {
		geo.Width = DefaultGeometry.Width
	}
	if geo.Height <= 0 {
		geo.Height = DefaultGeometry.Height
	}
	return geo
}

func validateLabels(labels []Label) error {
	if len(labels) == 0 {
		return fmt.Errorf("no labels to print")
	}
	if len(labels) > MaxLabelsPerPass {
		return fmt.Errorf("at most %d labels per pass, got %d", MaxLabelsPerPass, len(labels))
	}
	return nil
}
