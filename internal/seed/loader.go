package seed

import (
	"context"
	"fmt"
	"os"

	"stockroom/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for feeds on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based feed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "feed-loader").Logger(),
	}
}

// Load reads a gzipped feed file.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.ProductRequest, error) {
	l.logger.Info().Str("file", filePath).Msg("loading product feed")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open product feed")
		return nil, fmt.Errorf("failed to open product feed %s: %w", filePath, err)
	}
	defer file.Close()

	products, err := decodeFeed(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to decode product feed")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("products", len(products)).
		Msg("product feed loaded")

	return products, nil
}
