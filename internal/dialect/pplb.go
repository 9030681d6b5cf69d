package dialect

import (
	"bytes"
	"fmt"
)

// PPLB emits the caret-prefixed label language spoken by the newer
// firmware revisions. A print pass is bracketed by ^XA/^XZ; the ^XA
// format start also clears the label buffer.
type PPLB struct{}

func (PPLB) Name() string { return "pplb" }

// pplbBuilder accumulates CR-LF terminated command lines.
type pplbBuilder struct {
	buf bytes.Buffer
}

func (b *pplbBuilder) line(format string, args ...interface{}) {
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteString("\r\n")
}

func (b *pplbBuilder) formatStart(geo Geometry) {
	b.line("^XA")
	b.line("^LH0,0")
	b.line("^LL%d", geo.Height)
	b.line("^PW%d", geo.Width)
	b.line("^PR%d", geo.Speed)
	b.line("^MD%d", geo.Darkness)
}

func (b *pplbBuilder) text(x, y int, text string) {
	b.line("^FO%d,%d^A0N,20,20^FD%s^FS", x, y, sanitizeField(text))
}

func (b *pplbBuilder) barcode(x, y int, data string) {
	b.line("^FO%d,%d^BY2^BEN,60,Y,N^FD%s^FS", x, y, sanitizeField(data))
}

func (b *pplbBuilder) formatEnd(qty int) {
	b.line("^PQ%d", qty)
	b.line("^XZ")
}

// Field baselines within one label, in dots from the top edge.
const (
	pplbCompanyY = 24
	pplbNameY    = 48
	pplbCodeY    = 72
	pplbBarcodeY = 96
)

func (d PPLB) EncodeLabels(geo Geometry, labels []Label) ([]byte, error) {
	if err := validateLabels(labels); err != nil {
		return nil, err
	}
	geo = clampGeometry(geo)

	var b pplbBuilder
	b.formatStart(geo)

	offsets := LabelOffsets(MaxLabelsPerPass)
	for i, label := range labels {
		x := offsets[i]
		b.text(x, pplbCompanyY, label.Company)
		b.text(x, pplbNameY, label.ShortName)
		b.text(x, pplbCodeY, label.ProductCode)
		b.barcode(x, pplbBarcodeY, label.Barcode)
	}

	b.formatEnd(1)
	return b.buf.Bytes(), nil
}

func (d PPLB) EncodeTestPattern(geo Geometry) ([]byte, error) {
	geo = clampGeometry(geo)

	var b pplbBuilder
	b.formatStart(geo)
	b.line("^FO50,50^A0N,30,30^FDTeste de Impressao^FS")
	b.formatEnd(1)
	return b.buf.Bytes(), nil
}

// StatusQuery asks the printer for its configuration dump; a healthy
// link answers with a non-empty response.
func (PPLB) StatusQuery() []byte {
	return []byte("^XA^HH^XZ\r\n")
}
