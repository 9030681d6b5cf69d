package dialect

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLabels(n int) []Label {
	labels := make([]Label, n)
	for i := range labels {
		labels[i] = Label{
			Company:     "ESTRELA METAIS",
			ShortName:   fmt.Sprintf("PARAFUSO %d", i+1),
			ProductCode: fmt.Sprintf("P%02d", i+1),
			Barcode:     "7898465810011",
		}
	}
	return labels
}

func TestLabelOffsetsDeterministic(t *testing.T) {
	first := LabelOffsets(3)
	assert.Equal(t, []int{50, 314, 578}, first)

	// Identical geometry must always reproduce identical offsets.
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, LabelOffsets(3))
	}

	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i], first[i-1])
	}
}

func TestLabelOffsetsBounds(t *testing.T) {
	assert.Nil(t, LabelOffsets(0))
	assert.Equal(t, []int{50}, LabelOffsets(1))
	assert.Equal(t, []int{50, 314, 578}, LabelOffsets(7)) // clamped to 3
}

func TestSelect(t *testing.T) {
	d, err := Select("ppla")
	require.NoError(t, err)
	assert.Equal(t, "ppla", d.Name())

	d, err = Select("PPLB")
	require.NoError(t, err)
	assert.Equal(t, "pplb", d.Name())

	// Empty selector defaults to PPLB, the dialect the shipped printers run.
	d, err = Select("")
	require.NoError(t, err)
	assert.Equal(t, "pplb", d.Name())

	_, err = Select("zpl2")
	assert.Error(t, err)
}

func TestPPLBThreeLabelStream(t *testing.T) {
	geo := Geometry{Darkness: 8, Speed: 2, Width: 840, Height: 176}

	stream, err := PPLB{}.EncodeLabels(geo, sampleLabels(3))
	require.NoError(t, err)

	s := string(stream)

	// Exactly one format start (doubles as the buffer clear) and one
	// quantity command per pass.
	assert.Equal(t, 1, strings.Count(s, "^XA"), "format start count")
	assert.Equal(t, 1, strings.Count(s, "^PQ1"), "quantity command count")
	assert.Equal(t, 1, strings.Count(s, "^XZ"), "format end count")

	assert.Contains(t, s, "^LL176")
	assert.Contains(t, s, "^PW840")
	assert.Contains(t, s, "^PR2")
	assert.Contains(t, s, "^MD8")

	// Three short-name fields, one per label, at increasing X offsets.
	for i, x := range []int{50, 314, 578} {
		want := fmt.Sprintf("^FO%d,48^A0N,20,20^FDPARAFUSO %d^FS\r\n", x, i+1)
		assert.Contains(t, s, want)
	}

	// Every command line is CR-LF terminated, no bare newlines.
	assert.True(t, bytes.HasSuffix(stream, []byte("\r\n")))
	assert.Equal(t, strings.Count(s, "\n"), strings.Count(s, "\r\n"))
}

func TestPPLBSingleLabel(t *testing.T) {
	stream, err := PPLB{}.EncodeLabels(DefaultGeometry, sampleLabels(1))
	require.NoError(t, err)

	s := string(stream)
	assert.Equal(t, 1, strings.Count(s, "^FO50,48"))
	assert.NotContains(t, s, "^FO314")
	assert.Contains(t, s, "^FO50,96^BY2^BEN,60,Y,N^FD7898465810011^FS")
}

func TestPPLAThreeLabelStream(t *testing.T) {
	geo := Geometry{Darkness: 10, Speed: 3, Width: 840, Height: 176}

	stream, err := PPLA{}.EncodeLabels(geo, sampleLabels(3))
	require.NoError(t, err)

	s := string(stream)
	assert.Contains(t, s, "Q176,24\r\n")
	assert.Contains(t, s, "q840\r\n")
	assert.Contains(t, s, "S3\r\n")
	assert.Contains(t, s, "D10\r\n")
	assert.Equal(t, 1, strings.Count(s, "N\r\n"), "buffer clear count")
	assert.Equal(t, 1, strings.Count(s, "P1\r\n"), "print command count")

	for i, x := range []int{50, 314, 578} {
		assert.Contains(t, s, fmt.Sprintf("A%d,48,0,3,1,1,N,\"PARAFUSO %d\"\r\n", x, i+1))
	}
	assert.Equal(t, 3, strings.Count(s, ",E30,2,60,0,"), "barcode field count")
}

func TestEncodeRejectsBadBatch(t *testing.T) {
	for _, d := range []Dialect{PPLA{}, PPLB{}} {
		_, err := d.EncodeLabels(DefaultGeometry, nil)
		assert.Error(t, err, d.Name())

		_, err = d.EncodeLabels(DefaultGeometry, sampleLabels(4))
		assert.Error(t, err, d.Name())
	}
}

func TestGeometryClamping(t *testing.T) {
	geo := Geometry{Darkness: 40, Speed: 0, Width: 840, Height: 176}

	stream, err := PPLB{}.EncodeLabels(geo, sampleLabels(1))
	require.NoError(t, err)

	s := string(stream)
	assert.Contains(t, s, "^MD15")
	assert.Contains(t, s, "^PR1")
}

func TestFieldSanitization(t *testing.T) {
	labels := []Label{{
		Company:     `ESTRELA "OK"`,
		ShortName:   "LINHA\r\nDUPLA",
		ProductCode: "A^B~C",
		Barcode:     "7898465810011",
	}}

	for _, d := range []Dialect{PPLA{}, PPLB{}} {
		stream, err := d.EncodeLabels(DefaultGeometry, labels)
		require.NoError(t, err)

		s := string(stream)
		assert.Contains(t, s, "ESTRELA OK", d.Name())
		assert.Contains(t, s, "LINHADUPLA", d.Name())
		assert.Contains(t, s, "ABC", d.Name())
	}
}

func TestStatusQueries(t *testing.T) {
	assert.Equal(t, "~H\r\n", string(PPLA{}.StatusQuery()))
	assert.Equal(t, "^XA^HH^XZ\r\n", string(PPLB{}.StatusQuery()))
}

func TestTestPattern(t *testing.T) {
	for _, d := range []Dialect{PPLA{}, PPLB{}} {
		stream, err := d.EncodeTestPattern(DefaultGeometry)
		require.NoError(t, err)
		assert.Contains(t, string(stream), "Teste de Impressao", d.Name())
	}
}
