package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/KpopABLab/internal/storage"
)

func ev(v storage.Variant, imp, click, dwell int) storage.ExposureEvent {
	return storage.ExposureEvent{Variant: v, Impression: imp, Click: click, DwellMS: dwell}
}

func TestSummarizePerVariant(t *testing.T) {
	events := []storage.ExposureEvent{
		ev(storage.VariantA, 1, 1, 100),
		ev(storage.VariantA, 1, 0, 200),
		ev(storage.VariantB, 1, 1, 50),
	}

	overall, rows := Summarize(events)
	require.Len(t, rows, 2)

	assert.Equal(t, VariantRow{Variant: storage.VariantA, Impressions: 2, Clicks: 1, CTR: 50.0, AvgDwell: 150.0}, rows[0])
	assert.Equal(t, VariantRow{Variant: storage.VariantB, Impressions: 1, Clicks: 1, CTR: 100.0, AvgDwell: 50.0}, rows[1])

	assert.Equal(t, 3, overall.Impressions)
	assert.Equal(t, 2, overall.Clicks)
	assert.InDelta(t, 66.666, overall.CTR, 0.01)
	assert.InDelta(t, 116.666, overall.MeanDwell, 0.01)
}

func TestCTR(t *testing.T) {
	assert.Equal(t, 25.0, CTR(25, 100))
	assert.Equal(t, 0.0, CTR(0, 0))
	assert.Equal(t, 0.0, CTR(3, 0))
}

func TestSummarizeZeroImpressions(t *testing.T) {
	overall, rows := Summarize([]storage.ExposureEvent{ev(storage.VariantB, 0, 0, 0)})
	assert.Equal(t, 0.0, overall.CTR)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].CTR)
}

func TestSummarizeEmpty(t *testing.T) {
	overall, rows := Summarize(nil)
	assert.Equal(t, Overall{}, overall)
	assert.Empty(t, rows)
}

func TestSummarizeRoundsDwell(t *testing.T) {
	_, rows := Summarize([]storage.ExposureEvent{
		ev(storage.VariantA, 1, 0, 1),
		ev(storage.VariantA, 1, 0, 2),
		ev(storage.VariantA, 1, 0, 2),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1.7, rows[0].AvgDwell)
}

func TestSummarizeDeterministic(t *testing.T) {
	events := []storage.ExposureEvent{
		ev(storage.VariantB, 1, 0, 0),
		ev(storage.VariantA, 1, 1, 0),
		ev(storage.VariantB, 1, 1, 0),
	}
	o1, r1 := Summarize(events)
	o2, r2 := Summarize(events)
	assert.Equal(t, o1, o2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, storage.VariantA, r1[0].Variant)
}

func TestRenderTable(t *testing.T) {
	overall, rows := Summarize([]storage.ExposureEvent{
		ev(storage.VariantA, 1, 1, 100),
		ev(storage.VariantB, 1, 0, 0),
	})

	var buf bytes.Buffer
	RenderTable(&buf, overall, rows)
	out := buf.String()
	assert.Contains(t, out, "Per-variant performance")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "50.00")
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", FormatThousands(0))
	assert.Equal(t, "999", FormatThousands(999))
	assert.Equal(t, "1,000", FormatThousands(1000))
	assert.Equal(t, "1,234,567", FormatThousands(1234567))
	assert.Equal(t, "-12,345", FormatThousands(-12345))
}
