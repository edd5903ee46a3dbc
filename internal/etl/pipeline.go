// Package etl orchestrates the transform, resolve, and load stages for one
// batch of raw listing records, and owns the schema those stages write to.
package etl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listings-etl/internal/db"
	"github.com/sells-group/listings-etl/internal/load"
	"github.com/sells-group/listings-etl/internal/model"
	"github.com/sells-group/listings-etl/internal/resolve"
	"github.com/sells-group/listings-etl/internal/transform"
)

// Pipeline runs batches end to end.
type Pipeline struct {
	pool     db.Pool
	resolver *resolve.Resolver
	loader   *load.Loader
	opts     transform.Options
}

// New builds a Pipeline. The transform options also carry the concurrency
// limit shared by the parallel stages.
func New(pool db.Pool, opts transform.Options, featuredMinRating float64, featuredMinReviews int) *Pipeline {
	return &Pipeline{
		pool:     pool,
		resolver: resolve.New(pool),
		loader:   load.New(pool, featuredMinRating, featuredMinReviews),
		opts:     opts,
	}
}

// Run processes one batch. The returned BatchResult always describes the
// run, including aborted and failed runs; the error is non-nil only when a
// stage failed at the batch level (transaction failure, cancellation).
func (p *Pipeline) Run(ctx context.Context, source string, raws []model.RawRecord) (*model.BatchResult, error) {
	result := &model.BatchResult{
		RunID:     uuid.NewString(),
		Source:    source,
		State:     model.StateIdle,
		Attempted: len(raws),
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(
		zap.String("run_id", result.RunID),
		zap.String("source", source),
	)

	p.recordRunStart(ctx, result, log)

	if len(raws) == 0 {
		log.Warn("no input records; aborting batch")
		return p.finish(ctx, result, model.StateAbortedNoInput, log), nil
	}

	// Transform
	result.State = model.StateTransforming
	stageStart := time.Now()
	products, rejected, err := transform.Batch(ctx, raws, p.opts)
	if err != nil {
		p.finish(ctx, result, model.StateFailed, log)
		return result, eris.Wrap(err, "etl: transform stage")
	}
	result.Transformed = len(products)
	result.Rejected = len(rejected)
	for _, rej := range rejected {
		log.Warn("record rejected",
			zap.String("product_id", rej.ProductID),
			zap.String("reason", rej.Reason))
	}
	log.Info("transform stage complete",
		zap.Int("transformed", result.Transformed),
		zap.Int("rejected", result.Rejected),
		zap.Duration("elapsed", time.Since(stageStart)))

	if len(products) == 0 {
		log.Warn("no records survived transform; aborting batch")
		return p.finish(ctx, result, model.StateAbortedNoValidRecords, log), nil
	}

	if err := ctx.Err(); err != nil {
		p.finish(ctx, result, model.StateFailed, log)
		return result, eris.Wrap(err, "etl: canceled before resolve stage")
	}

	// Resolve categories and companies in parallel.
	result.State = model.StateResolving
	stageStart = time.Now()
	var categoryIDs, companyIDs map[string]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categoryIDs, err = p.resolver.Categories(gctx, products)
		return err
	})
	g.Go(func() error {
		var err error
		companyIDs, err = p.resolver.Companies(gctx, products)
		return err
	})
	if err := g.Wait(); err != nil {
		p.finish(ctx, result, model.StateFailed, log)
		return result, eris.Wrap(err, "etl: resolve stage")
	}
	log.Info("resolve stage complete",
		zap.Int("categories", len(categoryIDs)),
		zap.Int("companies", len(companyIDs)),
		zap.Duration("elapsed", time.Since(stageStart)))

	if err := ctx.Err(); err != nil {
		p.finish(ctx, result, model.StateFailed, log)
		return result, eris.Wrap(err, "etl: canceled before load stage")
	}

	// Load
	result.State = model.StateLoading
	stageStart = time.Now()
	snapshot := result.StartedAt.Truncate(24 * time.Hour)
	loadRes, err := p.loader.Load(ctx, products, categoryIDs, companyIDs, snapshot)
	if err != nil {
		p.finish(ctx, result, model.StateFailed, log)
		return result, eris.Wrap(err, "etl: load stage")
	}
	result.Loaded = loadRes.Loaded
	result.LoadErrors = loadRes.Errors
	log.Info("load stage complete",
		zap.Int("loaded", result.Loaded),
		zap.Int("load_errors", len(result.LoadErrors)),
		zap.Duration("elapsed", time.Since(stageStart)))

	return p.finish(ctx, result, model.StateReported, log), nil
}

// finish stamps the terminal state and persists the run row. Bookkeeping is
// best effort: a failure to record the run never fails the batch.
func (p *Pipeline) finish(ctx context.Context, result *model.BatchResult, state model.BatchState, log *zap.Logger) *model.BatchResult {
	result.State = state
	result.FinishedAt = time.Now().UTC()

	var loadErrs []byte
	if len(result.LoadErrors) > 0 {
		loadErrs, _ = json.Marshal(result.LoadErrors)
	}
	// Use a fresh context so a canceled run still gets recorded.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := p.pool.Exec(recordCtx, `
		UPDATE etl_runs
		SET status = $2, attempted = $3, transformed = $4, rejected = $5,
		    loaded = $6, load_errors = $7, finished_at = $8
		WHERE id = $1`,
		result.RunID, string(result.State), result.Attempted, result.Transformed,
		result.Rejected, result.Loaded, loadErrs, result.FinishedAt,
	); err != nil {
		log.Warn("failed to record run completion", zap.Error(err))
	}

	log.Info("batch finished",
		zap.String("state", string(result.State)),
		zap.Int("attempted", result.Attempted),
		zap.Int("loaded", result.Loaded),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result
}

func (p *Pipeline) recordRunStart(ctx context.Context, result *model.BatchResult, log *zap.Logger) {
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO etl_runs (id, source, status, attempted, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		result.RunID, result.Source, string(model.StateIdle), result.Attempted, result.StartedAt,
	); err != nil {
		log.Warn("failed to record run start", zap.Error(err))
	}
}
