package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guygriffiths/covtiles/internal/usecase"
)

// Handler handles HTTP requests for tiled coverage arrays.
type Handler struct {
	builder *usecase.Builder
}

// NewHandler creates a new HTTP handler.
func NewHandler(builder *usecase.Builder) *Handler {
	return &Handler{builder: builder}
}

// ArrayInfo describes one lazy array in a coverage document.
type ArrayInfo struct {
	Key       string   `json:"key"`
	Parameter string   `json:"parameter"`
	AxisNames []string `json:"axis_names"`
	Shape     []int    `json:"shape"`
	Chunks    [][]int  `json:"chunks"`
	Tasks     int      `json:"tasks"`
}

// ListArrays handles GET /v1/arrays.
func (h *Handler) ListArrays(c *gin.Context) {
	location := c.Query("url")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}

	arrays, err := h.builder.Arrays(c.Request.Context(), location)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	infos := make([]ArrayInfo, 0, len(arrays))
	for key, arr := range arrays {
		infos = append(infos, ArrayInfo{
			Key:       key,
			Parameter: arr.Param(),
			AxisNames: arr.AxisNames(),
			Shape:     arr.Shape(),
			Chunks:    arr.Chunks(),
			Tasks:     arr.TaskCount(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"arrays": infos,
		"count":  len(infos),
	})
}

// GetData handles GET /v1/arrays/data. Without start/count it materializes
// the whole array; with them it fetches only the tiles overlapping the
// requested region.
func (h *Handler) GetData(c *gin.Context) {
	location := c.Query("url")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key parameter is required"})
		return
	}

	arrays, err := h.builder.Arrays(c.Request.Context(), location)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	arr, ok := arrays[key]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no array with key %s", key)})
		return
	}

	start, err := parseIntList(c.Query("start"), len(arr.Shape()), 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start: %v", err)})
		return
	}
	count, err := parseIntList(c.Query("count"), len(arr.Shape()), -1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid count: %v", err)})
		return
	}
	// Default count: from start to the end of each axis.
	for i, n := range count {
		if n < 0 {
			count[i] = arr.Shape()[i] - start[i]
		}
	}

	result, err := arr.Slice(c.Request.Context(), start, count)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":    key,
		"start":  start,
		"shape":  result.Shape(),
		"values": result.Values(),
	})
}

// parseIntList parses a comma-separated integer list with one entry per
// axis, or returns a list filled with def when the parameter is absent.
func parseIntList(value string, ndim, def int) ([]int, error) {
	out := make([]int, ndim)
	if value == "" {
		for i := range out {
			out[i] = def
		}
		return out, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != ndim {
		return nil, fmt.Errorf("expected %d entries, got %d", ndim, len(parts))
	}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
