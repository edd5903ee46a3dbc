// Package transform normalizes raw listing records into Products.
package transform

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listings-etl/internal/model"
	"github.com/sells-group/listings-etl/internal/parse"
)

// Options controls normalization behavior. Zero values fall back to the
// standard defaults, so an empty Options is usable.
type Options struct {
	DefaultCategory string
	DefaultCompany  string
	PriceMin        float64
	PriceMax        float64
	Concurrency     int
}

func (o Options) withDefaults() Options {
	if o.DefaultCategory == "" {
		o.DefaultCategory = "Uncategorized"
	}
	if o.DefaultCompany == "" {
		o.DefaultCompany = "Unknown"
	}
	if o.PriceMax <= o.PriceMin {
		o.PriceMin = parse.DefaultPriceMin
		o.PriceMax = parse.DefaultPriceMax
	}
	if o.Concurrency < 1 {
		o.Concurrency = 8
	}
	return o
}

// RejectError indicates a record failed a required-field check.
type RejectError struct {
	ProductID string // may be empty when the identifier itself is missing
	Field     string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("transform: missing required field %q (product_id=%q)", e.Field, e.ProductID)
}

// Record normalizes a single raw record. It returns a *RejectError when a
// required field is empty after cleaning; malformed optional fields never
// fail the record.
func Record(raw model.RawRecord, opts Options) (*model.Product, error) {
	opts = opts.withDefaults()

	productID := parse.CleanText(raw[model.FieldProductID])
	if productID == "" {
		return nil, &RejectError{Field: model.FieldProductID}
	}
	name := parse.CleanText(raw[model.FieldName])
	if name == "" {
		return nil, &RejectError{ProductID: productID, Field: model.FieldName}
	}
	url := parse.CleanText(raw[model.FieldURL])
	if url == "" {
		return nil, &RejectError{ProductID: productID, Field: model.FieldURL}
	}

	category := parse.CleanText(raw[model.FieldCategory])
	if category == "" {
		category = opts.DefaultCategory
	}
	company := parse.CleanText(raw[model.FieldCompany])
	if company == "" {
		company = opts.DefaultCompany
	}

	p := &model.Product{
		ProductID:    productID,
		Name:         name,
		Category:     category,
		Company:      company,
		Description:  parse.CleanText(raw[model.FieldDescription]),
		URL:          url,
		ReviewsCount: parse.ReviewCount(raw[model.FieldReviewsCount]),
	}
	if price, ok := parse.PriceInRange(raw[model.FieldPrice], opts.PriceMin, opts.PriceMax); ok {
		p.Price = &price
	}
	if rating, ok := parse.Rating(raw[model.FieldAvgRating]); ok {
		p.AvgRating = &rating
	}
	return p, nil
}

// Batch normalizes raw records concurrently, preserving input order among
// the survivors. Rejected records are reported, not fatal; the only error
// returned is context cancellation.
func Batch(ctx context.Context, raws []model.RawRecord, opts Options) ([]*model.Product, []model.RecordError, error) {
	opts = opts.withDefaults()

	// Index-addressed result slots; no locking needed.
	products := make([]*model.Product, len(raws))
	rejects := make([]*model.RecordError, len(raws))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := Record(raw, opts)
			if err != nil {
				var rej *RejectError
				if errors.As(err, &rej) {
					rejects[i] = &model.RecordError{ProductID: rej.ProductID, Reason: rej.Error()}
					return nil
				}
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	kept := make([]*model.Product, 0, len(raws))
	var rejected []model.RecordError
	for i := range raws {
		if products[i] != nil {
			kept = append(kept, products[i])
		} else if rejects[i] != nil {
			rejected = append(rejected, *rejects[i])
		}
	}
	return kept, rejected, nil
}
