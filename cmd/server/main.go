// Package main provides the coverage tile array HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/guygriffiths/covtiles/internal/adapter/fetch"
	"github.com/guygriffiths/covtiles/internal/adapter/store/tiles"
	httpHandler "github.com/guygriffiths/covtiles/internal/http"
	"github.com/guygriffiths/covtiles/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("covtiles version %s\n", version)
		return
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	cacheMB := getEnvInt("TILE_CACHE_MB", 0)
	parallelism := getEnvInt("FETCH_PARALLELISM", 0)

	log.Printf("Starting coverage array server...")
	log.Printf("Port: %s", port)

	// Initialize the fetcher, optionally wrapped in a tile byte cache.
	var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(nil)
	if cacheMB > 0 {
		log.Printf("Tile cache: %d MB", cacheMB)
		fetcher = fetch.NewCachedFetcher(fetcher, cacheMB*1024*1024)
	} else {
		log.Printf("Tile cache disabled (repeated reads re-fetch tiles)")
	}

	// Initialize the tile loader and builder.
	loader := tiles.NewLoader(fetcher)
	builder := usecase.NewBuilder(fetcher, loader)
	if parallelism > 0 {
		log.Printf("Fetch parallelism: %d", parallelism)
		builder.SetParallelism(parallelism)
	}

	// Setup router.
	router := httpHandler.SetupRouter(builder)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", port)
	log.Printf("API endpoints:")
	log.Printf("  - GET /v1/arrays")
	log.Printf("  - GET /v1/arrays/data")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: ignoring non-integer %s=%q", key, value)
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Coverage Array Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  covtiles-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  TILE_CACHE_MB           In-memory tile byte cache size in MB (default: 0, disabled)")
	fmt.Println("  FETCH_PARALLELISM       Max concurrent tile fetches per array (default: 8)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /v1/arrays                 List lazy arrays in a coverage document (?url=)")
	fmt.Println("  GET /v1/arrays/data            Materialize an array or a slice of it (?url=&key=&start=&count=)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  covtiles-server")
	fmt.Println()
	fmt.Println("  # Start server with a 64 MB tile cache")
	fmt.Println("  TILE_CACHE_MB=64 covtiles-server")
	fmt.Println()
}
