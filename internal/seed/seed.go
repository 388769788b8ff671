// Package seed imports catalogue products from gzipped NDJSON feeds. Each
// non-blank line of a feed is one product object:
//
//	{"name":"Widget","price":10,"stock":5}
package seed

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"stockroom/internal/model"
)

// Loader reads a product feed.
type Loader interface {
	// Load reads a gzipped NDJSON feed and returns its product requests in
	// file order.
	Load(ctx context.Context, path string) ([]model.ProductRequest, error)
}

// maxLineBytes bounds a single feed line.
const maxLineBytes = 1024 * 1024

// cancelCheckEvery is how many lines are decoded between context checks.
const cancelCheckEvery = 10_000

// decodeFeed decompresses r and decodes one product per line.
func decodeFeed(ctx context.Context, r io.Reader, source string) ([]model.ProductRequest, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var products []model.ProductRequest
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req model.ProductRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		products = append(products, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading feed %s: %w", source, err)
	}

	return products, nil
}
