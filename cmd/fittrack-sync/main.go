package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meltforce/fittrack/internal/local"
	"github.com/meltforce/fittrack/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "FitTrack server URL (e.g. https://fittrack.tail1234.ts.net)")
	dataDir := flag.String("data-dir", "", "local workout store directory (default ~/.fittrack)")
	accessToken := flag.String("access-token", "", "API access token")
	refreshToken := flag.String("refresh-token", "", "API refresh token")
	bulk := flag.Bool("bulk", false, "push the whole backlog in one request instead of record by record")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fittrack-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" || *accessToken == "" {
		fmt.Fprintf(os.Stderr, "Usage: fittrack-sync -server <URL> -access-token <token> [-refresh-token <token>] [-data-dir <dir>] [-bulk]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	dir := *dataDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(homeDir, ".fittrack")
	}

	store, err := local.Open(dir)
	if err != nil {
		log.Error("failed to open local store", "dir", dir, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := sync.NewClient(*serverURL, sync.Credentials{
		AccessToken:  *accessToken,
		RefreshToken: *refreshToken,
	})
	syncer := sync.New(store, client, log)

	ctx := context.Background()
	var stats *sync.Stats
	if *bulk {
		stats, err = syncer.RunBulk(ctx)
	} else {
		stats, err = syncer.Run(ctx)
	}
	if errors.Is(err, sync.ErrSyncInProgress) {
		log.Warn("another sync is already running")
		return
	}
	if err != nil {
		log.Error("sync failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("sync complete")
}

func printStats(stats *sync.Stats) {
	if stats == nil {
		return
	}
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Attempted: %d\n", stats.Attempted)
	fmt.Printf("  Synced:    %d\n", stats.Synced)
	fmt.Printf("  Failed:    %d\n", stats.Failed)
	fmt.Printf("  On device: %d\n", len(stats.Workouts))
	fmt.Println()
}
