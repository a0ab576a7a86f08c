// Package tiles loads individual CoverageJSON tiles addressed by a URL
// template and per-axis tile indices.
package tiles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/guygriffiths/covtiles/internal/adapter/fetch"
	"github.com/guygriffiths/covtiles/internal/covjson"
	"github.com/guygriffiths/covtiles/internal/domain"
)

// Loader fetches and decodes tiles through a byte fetcher.
type Loader struct {
	fetcher fetch.Fetcher
}

// NewLoader creates a tile loader backed by the given fetcher.
func NewLoader(fetcher fetch.Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// TileURL substitutes each tile index into the template: every occurrence
// of "{<axisName>}" becomes the decimal index for that axis. Templates may
// reference only a subset of the axes; placeholders for axes not listed are
// left untouched.
func TileURL(urlTemplate string, axisNames []string, tileIndices []int) string {
	url := urlTemplate
	for i, axis := range axisNames {
		if i >= len(tileIndices) {
			break
		}
		url = strings.ReplaceAll(url, "{"+axis+"}", strconv.Itoa(tileIndices[i]))
	}
	return url
}

// LoadTile fetches the tile at the given indices and reshapes its flat
// value list into a block of the tile's declared shape.
func (l *Loader) LoadTile(ctx context.Context, urlTemplate string, axisNames []string, tileIndices []int) (*domain.NDArray, error) {
	url := TileURL(urlTemplate, axisNames, tileIndices)

	body, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := covjson.ParseTile(body)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", url, err)
	}

	block, err := domain.Reshape(doc.Values, doc.Shape)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", url, err)
	}
	return block, nil
}
