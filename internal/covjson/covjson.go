// Package covjson parses tiled CoverageJSON documents: the top-level
// coverage document describing parameters and their tilesets, and the
// per-tile documents holding the actual values.
package covjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// coverageSchema captures the structural requirements of a tiled coverage
// document. Cross-field length constraints (tileShape vs axisNames) cannot
// be expressed here and are checked by Range.Validate.
const coverageSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["parameters", "ranges"],
	"properties": {
		"parameters": {"type": "object"},
		"ranges": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["axisNames", "shape", "tileSets"],
				"properties": {
					"axisNames": {
						"type": "array",
						"minItems": 1,
						"items": {"type": "string", "minLength": 1}
					},
					"shape": {
						"type": "array",
						"minItems": 1,
						"items": {"type": "integer", "minimum": 1}
					},
					"tileSets": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["tileShape", "urlTemplate"],
							"properties": {
								"tileShape": {
									"type": "array",
									"items": {"type": ["integer", "null"]}
								},
								"urlTemplate": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("coverage.schema.json", coverageSchema)

// Coverage is the parsed top-level document. Parameter metadata is kept
// opaque; only the parameter names are consulted here.
type Coverage struct {
	Parameters map[string]json.RawMessage `json:"parameters"`
	Ranges     map[string]Range           `json:"ranges"`
}

// Range describes one parameter's data layout and the tilesets it is
// available in.
type Range struct {
	AxisNames []string  `json:"axisNames"`
	Shape     []int     `json:"shape"`
	TileSets  []TileSet `json:"tileSets"`
}

// TileSet describes one partitioning of a parameter's data. A nil entry in
// TileShape marks an unsplit axis whose full extent is present in every tile.
type TileSet struct {
	TileShape   []*int `json:"tileShape"`
	URLTemplate string `json:"urlTemplate"`
}

// ParseCoverage validates and decodes a coverage document.
func ParseCoverage(data []byte) (*Coverage, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("invalid coverage document: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("coverage document failed schema validation: %w", err)
	}

	var cov Coverage
	if err := json.Unmarshal(data, &cov); err != nil {
		return nil, fmt.Errorf("invalid coverage document: %w", err)
	}
	return &cov, nil
}

// Validate checks the cross-field constraints of one parameter's range.
func (r *Range) Validate(param string) error {
	if len(r.Shape) != len(r.AxisNames) {
		return fmt.Errorf("parameter %s: shape has %d entries but %d axis names",
			param, len(r.Shape), len(r.AxisNames))
	}
	for i, extent := range r.Shape {
		if extent <= 0 {
			return fmt.Errorf("parameter %s: extent of axis %s must be positive, got %d",
				param, r.AxisNames[i], extent)
		}
	}
	for ti, ts := range r.TileSets {
		if len(ts.TileShape) != len(r.AxisNames) {
			return fmt.Errorf("parameter %s: tileset %d has %d tile shape entries but %d axis names",
				param, ti, len(ts.TileShape), len(r.AxisNames))
		}
		for ai, size := range ts.TileShape {
			if size != nil && *size <= 0 {
				return fmt.Errorf("parameter %s: tileset %d tile size on axis %s must be positive, got %d",
					param, ti, r.AxisNames[ai], *size)
			}
		}
	}
	return nil
}

// TileDocument is one fetched tile: a flat row-major value list and its
// declared shape.
type TileDocument struct {
	Values []float64
	Shape  []int
}

// ParseTile decodes a tile document. Null values (missing data) decode to
// NaN so the tile stays a dense numeric block.
func ParseTile(data []byte) (*TileDocument, error) {
	var raw struct {
		Values []*float64 `json:"values"`
		Shape  []int      `json:"shape"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid tile document: %w", err)
	}
	if raw.Values == nil {
		return nil, fmt.Errorf("tile document is missing values")
	}
	if len(raw.Shape) == 0 {
		return nil, fmt.Errorf("tile document is missing shape")
	}
	values := make([]float64, len(raw.Values))
	for i, v := range raw.Values {
		if v == nil {
			values[i] = math.NaN()
		} else {
			values[i] = *v
		}
	}
	return &TileDocument{Values: values, Shape: raw.Shape}, nil
}
