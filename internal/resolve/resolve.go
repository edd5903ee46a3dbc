// Package resolve maps category and company names to database IDs,
// inserting missing names as it goes.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listings-etl/internal/db"
	"github.com/sells-group/listings-etl/internal/model"
)

// Resolver resolves reference-table names to IDs.
type Resolver struct {
	pool db.Pool
}

// New returns a Resolver backed by the given pool.
func New(pool db.Pool) *Resolver {
	return &Resolver{pool: pool}
}

// Categories resolves every distinct category name in products to its ID,
// creating rows for names not yet present.
func (r *Resolver) Categories(ctx context.Context, products []*model.Product) (map[string]int64, error) {
	names := distinctNames(products, func(p *model.Product) string { return p.Category })
	return r.resolve(ctx, "categories", "category_id", "category_name", names)
}

// Companies resolves every distinct company name in products to its ID,
// creating rows for names not yet present.
func (r *Resolver) Companies(ctx context.Context, products []*model.Product) (map[string]int64, error) {
	names := distinctNames(products, func(p *model.Product) string { return p.Company })
	return r.resolve(ctx, "companies", "company_id", "company_name", names)
}

// resolve upserts each name and collects the resulting IDs. The DO UPDATE
// no-op on conflict makes RETURNING yield the existing row's ID, so
// concurrent batches inserting the same name converge on one row.
func (r *Resolver) resolve(ctx context.Context, table, idCol, nameCol string, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s RETURNING %s",
		table, nameCol, nameCol, nameCol, nameCol, idCol,
	)
	for _, name := range names {
		var id int64
		if err := r.pool.QueryRow(ctx, sql, name).Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "resolve: upsert %s %q", table, name)
		}
		ids[name] = id
	}

	zap.L().Debug("resolved reference names",
		zap.String("table", table),
		zap.Int("names", len(names)))
	return ids, nil
}

// distinctNames extracts the sorted set of non-empty names. Sorting keeps
// lock acquisition order stable across concurrent batches.
func distinctNames(products []*model.Product, key func(*model.Product) string) []string {
	seen := make(map[string]bool, len(products))
	var names []string
	for _, p := range products {
		name := key(p)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
