// dsql-server serves the HTTP browsing interface over a directory of
// .dsql capture files and an optional frame index database.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/framegrabber/internal/dsql/monitor"
	"github.com/banshee-data/framegrabber/internal/dsql/store"
	"github.com/banshee-data/framegrabber/internal/version"
)

var (
	listen     = flag.String("listen", ":8082", "HTTP listen address")
	captureDir = flag.String("captures", "captures", "Directory of .dsql capture files to serve")
	dbFile     = flag.String("db", "", "Optional SQLite frame index database")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	log.Printf("dsql-server %s (%s)", version.Version, version.GitSHA)

	config := monitor.WebServerConfig{
		Address:    *listen,
		CaptureDir: *captureDir,
	}

	if *dbFile != "" {
		s, err := store.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open frame index: %v", err)
		}
		defer s.Close()
		config.Store = s
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := monitor.NewWebServer(config)
	if err := ws.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
