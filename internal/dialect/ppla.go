package dialect

import (
	"bytes"
	"fmt"
)

// PPLA emits the line-oriented EPL-style language spoken by the older
// firmware revisions. Geometry setters come first, then a buffer clear,
// then one command per field, then the print-count command.
type PPLA struct{}

func (PPLA) Name() string { return "ppla" }

type pplaBuilder struct {
	buf bytes.Buffer
}

func (b *pplaBuilder) line(format string, args ...interface{}) {
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteString("\r\n")
}

func (b *pplaBuilder) setup(geo Geometry) {
	b.line("Q%d,24", geo.Height)
	b.line("q%d", geo.Width)
	b.line("S%d", geo.Speed)
	b.line("D%d", geo.Darkness)
	b.line("N") // clear label buffer
}

// text emits A<x>,<y>,<rotation>,<font>,<h-mult>,<v-mult>,<reverse>,"<text>".
func (b *pplaBuilder) text(x, y int, text string) {
	b.line("A%d,%d,0,3,1,1,N,\"%s\"", x, y, sanitizeField(text))
}

// barcode emits B<x>,<y>,<type>,<width>,<height>,<rotation>,"<data>".
// E30 selects EAN-13 with a 30-dot human-readable line.
func (b *pplaBuilder) barcode(x, y int, data string) {
	b.line("B%d,%d,E30,2,60,0,\"%s\"", x, y, sanitizeField(data))
}

func (b *pplaBuilder) print(qty int) {
	b.line("P%d", qty)
}

const (
	pplaCompanyY = 24
	pplaNameY    = 48
	pplaCodeY    = 72
	pplaBarcodeY = 96
)

func (d PPLA) EncodeLabels(geo Geometry, labels []Label) ([]byte, error) {
	if err := validateLabels(labels); err != nil {
		return nil, err
	}
	geo = clampGeometry(geo)

	var b pplaBuilder
	b.setup(geo)

	offsets := LabelOffsets(MaxLabelsPerPass)
	for i, label := range labels {
		x := offsets[i]
		b.text(x, pplaCompanyY, label.Company)
		b.text(x, pplaNameY, label.ShortName)
		b.text(x, pplaCodeY, label.ProductCode)
		b.barcode(x, pplaBarcodeY, label.Barcode)
	}

	b.print(1)
	return b.buf.Bytes(), nil
}

func (d PPLA) EncodeTestPattern(geo Geometry) ([]byte, error) {
	geo = clampGeometry(geo)

	var b pplaBuilder
	b.setup(geo)
	b.line("A50,50,0,3,1,1,N,\"Teste de Impressao\"")
	b.print(1)
	return b.buf.Bytes(), nil
}

func (PPLA) StatusQuery() []byte {
	return []byte("~H\r\n")
}
