package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stockroom/internal/model"

	"github.com/rs/zerolog"
)

// Creator creates catalogue products. service.ProductService satisfies it.
type Creator interface {
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)
}

// Result summarises an import.
type Result struct {
	Loaded   int
	Created  int
	Skipped  int // name already in the catalogue
	Rejected int // failed validation
}

// Importer loads feeds and creates their products.
type Importer struct {
	loader  Loader
	creator Creator
	logger  zerolog.Logger
}

// NewImporter creates a new catalogue importer.
func NewImporter(loader Loader, creator Creator, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:  loader,
		creator: creator,
		logger:  logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Import loads every feed concurrently, then creates products one at a time
// in feed order. Existing names are skipped so re-seeding is idempotent.
// Any load or storage failure aborts the import.
func (im *Importer) Import(ctx context.Context, paths []string) (Result, error) {
	im.logger.Info().Int("feed_count", len(paths)).Msg("importing product feeds")

	type loadResult struct {
		index    int
		products []model.ProductRequest
		err      error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			products, err := im.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, products: products, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	var res Result
	for i, result := range results {
		if result.err != nil {
			im.logger.Error().Err(result.err).Str("feed", paths[i]).Msg("failed to load product feed")
			return res, fmt.Errorf("failed to load product feed %s: %w", paths[i], result.err)
		}
		res.Loaded += len(result.products)
	}

	for i, result := range results {
		for j := range result.products {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			req := result.products[j]
			_, err := im.creator.Create(ctx, &req)
			switch {
			case err == nil:
				res.Created++
			case errors.Is(err, model.ErrDuplicateName):
				res.Skipped++
			case errors.Is(err, model.ErrValidation):
				res.Rejected++
				im.logger.Warn().
					Err(err).
					Str("feed", paths[i]).
					Int("entry", j).
					Msg("skipping invalid feed entry")
			default:
				return res, fmt.Errorf("failed to import %q from %s: %w", req.Name, paths[i], err)
			}
		}
	}

	im.logger.Info().
		Int("loaded", res.Loaded).
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("rejected", res.Rejected).
		Msg("product feeds imported")

	return res, nil
}
