// Package main provides covjson-generator, a tool that writes a synthetic
// tiled CoverageJSON dataset to disk: a top-level coverage document plus one
// document per tile, servable by any static file server.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/guygriffiths/covtiles/internal/covjson"
	"github.com/guygriffiths/covtiles/internal/domain"
)

func main() {
	outDir := flag.String("out", "./data", "Output directory")
	param := flag.String("param", "FOO", "Parameter name")
	axesFlag := flag.String("axes", "y,x", "Comma-separated axis names")
	shapeFlag := flag.String("shape", "10,11", "Comma-separated overall shape")
	tileFlag := flag.String("tile", "3,3", "Comma-separated tile shape ('-' for an unsplit axis)")
	baseURL := flag.String("base-url", "", "Prefix for tile URL templates (e.g. http://localhost:8000/)")
	untiled := flag.Bool("untiled", true, "Also write an untiled tileset holding all the data")
	flag.Parse()

	axes := strings.Split(*axesFlag, ",")
	shape, err := parseInts(*shapeFlag)
	if err != nil {
		log.Fatalf("Invalid -shape: %v", err)
	}
	tileShape, err := parseTileShape(*tileFlag)
	if err != nil {
		log.Fatalf("Invalid -tile: %v", err)
	}
	if len(shape) != len(axes) || len(tileShape) != len(axes) {
		log.Fatalf("-axes, -shape and -tile must have the same number of entries")
	}

	if err := os.MkdirAll(filepath.Join(*outDir, "tiles"), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Synthetic smooth field over the full grid.
	full, err := syntheticField(shape)
	if err != nil {
		log.Fatalf("Failed to build field: %v", err)
	}

	// Per-axis chunk grid for the tiled tileset.
	chunks := make([][]int, len(axes))
	offsets := make([][]int, len(axes))
	counts := make([]int, len(axes))
	for i, extent := range shape {
		size := extent
		if tileShape[i] != nil {
			size = *tileShape[i]
		}
		chunks[i], err = domain.AxisChunks(extent, size)
		if err != nil {
			log.Fatalf("Axis %s: %v", axes[i], err)
		}
		offsets[i] = domain.ChunkOffsets(chunks[i])
		counts[i] = len(chunks[i])
	}

	// Write one tile document per chunk coordinate.
	coords := domain.EnumerateChunkCoords(counts)
	for _, coord := range coords {
		start := make([]int, len(coord))
		count := make([]int, len(coord))
		for i, c := range coord {
			start[i] = offsets[i][c]
			count[i] = chunks[i][c]
		}
		block, err := full.Region(start, count)
		if err != nil {
			log.Fatalf("Failed to cut tile %v: %v", coord, err)
		}
		path := filepath.Join(*outDir, "tiles", tileName(coord))
		if err := writeJSON(path, map[string]interface{}{
			"values": block.Values(),
			"shape":  block.Shape(),
		}); err != nil {
			log.Fatalf("Failed to write tile %v: %v", coord, err)
		}
	}
	log.Printf("Wrote %d tiles to %s", len(coords), filepath.Join(*outDir, "tiles"))

	// Tile URL template: tiles/{y}-{x}.covjson for the split axes.
	placeholders := make([]string, len(axes))
	for i, axis := range axes {
		placeholders[i] = "{" + axis + "}"
	}
	tileSets := []covjson.TileSet{{
		TileShape:   tileShape,
		URLTemplate: *baseURL + "tiles/" + strings.Join(placeholders, "-") + ".covjson",
	}}

	if *untiled {
		fullPath := filepath.Join(*outDir, "tiles", "full.covjson")
		if err := writeJSON(fullPath, map[string]interface{}{
			"values": full.Values(),
			"shape":  full.Shape(),
		}); err != nil {
			log.Fatalf("Failed to write untiled data: %v", err)
		}
		tileSets = append(tileSets, covjson.TileSet{
			TileShape:   make([]*int, len(axes)),
			URLTemplate: *baseURL + "tiles/full.covjson",
		})
	}

	doc := map[string]interface{}{
		"parameters": map[string]interface{}{
			*param: map[string]interface{}{
				"type": "Parameter",
				"observedProperty": map[string]interface{}{
					"label": map[string]string{"en": *param},
				},
			},
		},
		"ranges": map[string]interface{}{
			*param: map[string]interface{}{
				"axisNames": axes,
				"shape":     shape,
				"tileSets":  tileSets,
			},
		},
	}
	docPath := filepath.Join(*outDir, "coverage.covjson")
	if err := writeJSON(docPath, doc); err != nil {
		log.Fatalf("Failed to write coverage document: %v", err)
	}

	log.Printf("Wrote %s", docPath)
	log.Printf("Serve with any static file server, e.g.:")
	log.Printf("  cd %s && python3 -m http.server 8000", *outDir)
}

// syntheticField fills an array of the given shape with a smooth field so
// neighbouring tiles are visually continuous.
func syntheticField(shape []int) (*domain.NDArray, error) {
	arr, err := domain.NewNDArray(shape)
	if err != nil {
		return nil, err
	}
	values := arr.Values()
	// Flat index decomposed back into coordinates, row-major.
	for idx := range values {
		rem := idx
		v := 0.0
		for i := len(shape) - 1; i >= 0; i-- {
			c := rem % shape[i]
			rem /= shape[i]
			v += math.Sin(float64(c)*math.Pi/float64(shape[i])) * float64(i+1)
		}
		values[idx] = math.Round(v*100) / 100
	}
	return arr, nil
}

// tileName builds the on-disk file name for a tile, e.g. "2-0.covjson".
func tileName(coord []int) string {
	parts := make([]string, len(coord))
	for i, c := range coord {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "-") + ".covjson"
}

func parseInts(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// parseTileShape parses tile sizes, mapping "-" to nil (unsplit axis).
func parseTileShape(value string) ([]*int, error) {
	parts := strings.Split(value, ",")
	out := make([]*int, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "-" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out[i] = &n
	}
	return out, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
