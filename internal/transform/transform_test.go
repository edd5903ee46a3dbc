package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listings-etl/internal/model"
)

func validRaw() model.RawRecord {
	return model.RawRecord{
		"product_id":    "B00X4WHP5E",
		"name":          "  Widget   Pro  ",
		"category":      "Electronics",
		"company":       "Acme Corp",
		"description":   "A fine widget.",
		"price":         "$1,234.56",
		"url":           "https://example.com/widget",
		"reviews_count": "1.2k reviews",
		"avg_rating":    "4.5 out of 5 stars",
	}
}

func TestRecord_FullyPopulated(t *testing.T) {
	p, err := Record(validRaw(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "B00X4WHP5E", p.ProductID)
	assert.Equal(t, "Widget Pro", p.Name)
	assert.Equal(t, "Electronics", p.Category)
	assert.Equal(t, "Acme Corp", p.Company)
	assert.Equal(t, "A fine widget.", p.Description)
	require.NotNil(t, p.Price)
	assert.InDelta(t, 1234.56, *p.Price, 0.001)
	assert.Equal(t, "https://example.com/widget", p.URL)
	assert.Equal(t, 1200, p.ReviewsCount)
	require.NotNil(t, p.AvgRating)
	assert.InDelta(t, 4.5, *p.AvgRating, 0.001)
}

func TestRecord_Defaults(t *testing.T) {
	raw := validRaw()
	raw["category"] = "   "
	delete(raw, "company")

	p, err := Record(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Uncategorized", p.Category)
	assert.Equal(t, "Unknown", p.Company)
}

func TestRecord_CustomDefaults(t *testing.T) {
	raw := validRaw()
	delete(raw, "category")
	delete(raw, "company")

	p, err := Record(raw, Options{DefaultCategory: "Misc", DefaultCompany: "N/A"})
	require.NoError(t, err)
	assert.Equal(t, "Misc", p.Category)
	assert.Equal(t, "N/A", p.Company)
}

func TestRecord_MalformedOptionalFields(t *testing.T) {
	raw := validRaw()
	raw["price"] = "contact us"
	raw["reviews_count"] = "none"
	raw["avg_rating"] = "not rated"

	p, err := Record(raw, Options{})
	require.NoError(t, err)
	assert.Nil(t, p.Price)
	assert.Equal(t, 0, p.ReviewsCount)
	assert.Nil(t, p.AvgRating)
}

func TestRecord_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"missing product_id", "product_id"},
		{"missing name", "name"},
		{"missing url", "url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			raw[tt.field] = "   "

			_, err := Record(raw, Options{})
			require.Error(t, err)

			rej, ok := err.(*RejectError)
			require.True(t, ok)
			assert.Equal(t, tt.field, rej.Field)
		})
	}
}

func TestRecord_RejectCarriesProductID(t *testing.T) {
	raw := validRaw()
	raw["name"] = ""

	_, err := Record(raw, Options{})
	require.Error(t, err)

	rej := err.(*RejectError)
	assert.Equal(t, "B00X4WHP5E", rej.ProductID)
}

func TestBatch(t *testing.T) {
	bad := validRaw()
	bad["product_id"] = "B002"
	bad["name"] = ""

	second := validRaw()
	second["product_id"] = "B003"

	raws := []model.RawRecord{validRaw(), bad, second}

	products, rejected, err := Batch(context.Background(), raws, Options{Concurrency: 2})
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "B00X4WHP5E", products[0].ProductID)
	assert.Equal(t, "B003", products[1].ProductID)

	require.Len(t, rejected, 1)
	assert.Equal(t, "B002", rejected[0].ProductID)
	assert.Contains(t, rejected[0].Reason, "name")
}

func TestBatch_Empty(t *testing.T) {
	products, rejected, err := Batch(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Empty(t, rejected)
}

func TestBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Batch(ctx, []model.RawRecord{validRaw()}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
