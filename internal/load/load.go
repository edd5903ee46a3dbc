// Package load writes normalized products and their snapshot metrics to
// Postgres in a single transaction.
package load

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listings-etl/internal/db"
	"github.com/sells-group/listings-etl/internal/model"
)

var productColumns = []string{
	"product_id", "name", "category_id", "company_id", "description", "price", "url",
}

var metricColumns = []string{
	"product_id", "reviews_count", "avg_rating", "is_featured", "snapshot_date",
}

// Loader persists products and metrics.
type Loader struct {
	pool               db.Pool
	featuredMinRating  float64
	featuredMinReviews int
}

// New returns a Loader. featuredMinRating and featuredMinReviews are the
// thresholds both of which a product must meet to be flagged featured.
func New(pool db.Pool, featuredMinRating float64, featuredMinReviews int) *Loader {
	return &Loader{
		pool:               pool,
		featuredMinRating:  featuredMinRating,
		featuredMinReviews: featuredMinReviews,
	}
}

// Result reports what one Load call wrote and which records it dropped.
type Result struct {
	Loaded int
	Errors []model.RecordError
}

// Load upserts products and inserts their snapshot metrics atomically.
// Records that cannot be written (duplicate product_id within the batch,
// unresolvable category or company) are dropped and reported in the Result;
// a transaction failure rolls back everything and returns an error.
func (l *Loader) Load(
	ctx context.Context,
	products []*model.Product,
	categoryIDs, companyIDs map[string]int64,
	snapshot time.Time,
) (*Result, error) {
	res := &Result{}

	valid := l.validate(products, categoryIDs, companyIDs, res)
	if len(valid) == 0 {
		return res, nil
	}

	productRows := make([][]any, 0, len(valid))
	metricRows := make([][]any, 0, len(valid))
	for _, p := range valid {
		productRows = append(productRows, []any{
			p.ProductID, p.Name, categoryIDs[p.Category], companyIDs[p.Company],
			p.Description, p.Price, p.URL,
		})
		metricRows = append(metricRows, []any{
			p.ProductID, p.ReviewsCount, p.AvgRating, l.isFeatured(p), snapshot,
		})
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.UpsertTx(ctx, tx, db.UpsertConfig{
		Table:        "products",
		Columns:      productColumns,
		ConflictKeys: []string{"product_id"},
		TouchColumn:  "updated_at",
	}, productRows); err != nil {
		return nil, err
	}

	// One metrics row per product; a re-load overwrites the snapshot.
	if _, err := db.UpsertTx(ctx, tx, db.UpsertConfig{
		Table:        "product_metrics",
		Columns:      metricColumns,
		ConflictKeys: []string{"product_id"},
	}, metricRows); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "load: commit tx")
	}

	res.Loaded = len(valid)
	zap.L().Info("batch loaded",
		zap.Int("loaded", res.Loaded),
		zap.Int("dropped", len(res.Errors)),
		zap.Time("snapshot", snapshot))
	return res, nil
}

// validate drops records that would fail inside the transaction, recording
// an error for each. Duplicate product_ids keep the last occurrence, which
// COPY-then-upsert could not express (two temp rows with one conflict key).
func (l *Loader) validate(
	products []*model.Product,
	categoryIDs, companyIDs map[string]int64,
	res *Result,
) []*model.Product {
	lastIdx := make(map[string]int, len(products))
	for i, p := range products {
		lastIdx[p.ProductID] = i
	}

	valid := make([]*model.Product, 0, len(products))
	for i, p := range products {
		if lastIdx[p.ProductID] != i {
			res.Errors = append(res.Errors, model.RecordError{
				ProductID: p.ProductID,
				Reason:    "duplicate product_id in batch; superseded by a later record",
			})
			continue
		}
		if _, ok := categoryIDs[p.Category]; !ok {
			res.Errors = append(res.Errors, model.RecordError{
				ProductID: p.ProductID,
				Reason:    fmt.Sprintf("unresolved category %q", p.Category),
			})
			continue
		}
		if _, ok := companyIDs[p.Company]; !ok {
			res.Errors = append(res.Errors, model.RecordError{
				ProductID: p.ProductID,
				Reason:    fmt.Sprintf("unresolved company %q", p.Company),
			})
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// isFeatured applies the featured rule: rating and review count must both
// clear their thresholds.
func (l *Loader) isFeatured(p *model.Product) bool {
	return p.AvgRating != nil &&
		*p.AvgRating >= l.featuredMinRating &&
		p.ReviewsCount >= l.featuredMinReviews
}
