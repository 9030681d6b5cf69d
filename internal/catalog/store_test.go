package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estrelametais/label-engine/internal/barcode"
	"github.com/estrelametais/label-engine/internal/printer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", barcode.DefaultPrefix)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateProductAssignsBarcode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Product{ProductCode: "P01", Name: "Parafuso Sextavado", NameShort: "PARAFUSO"}
	require.NoError(t, s.CreateProduct(ctx, p))

	assert.NotZero(t, p.ID)
	assert.Equal(t, "7898465810011", p.Barcode)
	assert.NoError(t, barcode.Validate(p.Barcode))
	assert.NotEmpty(t, p.CreatedAt)
}

func TestCreateProductSequenceIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	codes := []string{"A1", "A2", "A3"}
	var barcodes []string
	for _, code := range codes {
		p := &Product{ProductCode: code, Name: "Item " + code, NameShort: code}
		require.NoError(t, s.CreateProduct(ctx, p))
		barcodes = append(barcodes, p.Barcode)
	}

	assert.Equal(t, "001", barcodes[0][9:12])
	assert.Equal(t, "002", barcodes[1][9:12])
	assert.Equal(t, "003", barcodes[2][9:12])

	seq, err := s.CurrentSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)
}

func TestCreateProductValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.CreateProduct(ctx, &Product{ProductCode: "", Name: "N", NameShort: "N"}))
	assert.Error(t, s.CreateProduct(ctx, &Product{ProductCode: "TOOLONG", Name: "N", NameShort: "N"}))

	require.NoError(t, s.CreateProduct(ctx, &Product{ProductCode: "X1", Name: "First", NameShort: "F"}))
	err := s.CreateProduct(ctx, &Product{ProductCode: "X1", Name: "Second", NameShort: "S"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestDeleteNewestRowReusesSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Product{ProductCode: "B1", Name: "One", NameShort: "ONE"}
	require.NoError(t, s.CreateProduct(ctx, first))
	second := &Product{ProductCode: "B2", Name: "Two", NameShort: "TWO"}
	require.NoError(t, s.CreateProduct(ctx, second))

	require.NoError(t, s.DeleteProduct(ctx, second.ID))

	// The sequence derives from the newest surviving row, so the freed
	// number is handed out again. Documented behavior.
	third := &Product{ProductCode: "B3", Name: "Three", NameShort: "THREE"}
	require.NoError(t, s.CreateProduct(ctx, third))
	assert.Equal(t, second.Barcode, third.Barcode)
}

func TestUpdateProductKeepsBarcode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Product{ProductCode: "U1", Name: "Before", NameShort: "B"}
	require.NoError(t, s.CreateProduct(ctx, p))
	original := p.Barcode

	p.Name = "After"
	p.NameShort = "A"
	require.NoError(t, s.UpdateProduct(ctx, p))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, original, got.Barcode)
}

func TestGetProductNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProduct(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, s.DeleteProduct(context.Background(), 9999), ErrProductNotFound)
}

func TestLastBarcodeEmptyCatalog(t *testing.T) {
	s := newTestStore(t)

	last, err := s.LastBarcode(context.Background())
	require.NoError(t, err)
	assert.Empty(t, last)

	seq, err := s.CurrentSequence(context.Background())
	require.NoError(t, err)
	assert.Zero(t, seq)
}

func TestPrintHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Product{ProductCode: "H1", Name: "Historico", NameShort: "HIST"}
	require.NoError(t, s.CreateProduct(ctx, p))

	require.NoError(t, s.RecordPrintJob(ctx, p.ID, p.Name, p.ProductCode, JobCompleted))
	require.NoError(t, s.RecordPrintJob(ctx, p.ID, p.Name, p.ProductCode, JobFailed))

	jobs, err := s.PrintHistory(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, JobFailed, jobs[0].Status)
	assert.Equal(t, p.ID, jobs[0].ProductID)
}

func TestPrinterSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Nothing saved yet: defaults.
	cfg, err := s.LoadPrinterSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, printer.DefaultConfig(), cfg)

	saved := printer.Config{
		Darkness: 12,
		Width:    840,
		Height:   176,
		Speed:    3,
		Port:     "/dev/ttyUSB0",
		Dialect:  "ppla",
		Baud:     19200,
	}
	require.NoError(t, s.SavePrinterSettings(ctx, saved))

	cfg, err = s.LoadPrinterSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, cfg)

	// Saving again replaces the single settings row.
	saved.Darkness = 5
	require.NoError(t, s.SavePrinterSettings(ctx, saved))
	cfg, err = s.LoadPrinterSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Darkness)
}
