package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var galleryWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Precompute reference embeddings",
	Long: `Send every reference photo to the embedding server once so the first
session does not wait for it. With DATABASE_URL set the embeddings are stored
in PostgreSQL and reused by later runs until a photo changes.

Examples:
  face-attendance gallery warm
  face-attendance gallery warm --concurrency 4`,
	RunE: runGalleryWarm,
}

func init() {
	galleryCmd.AddCommand(galleryWarmCmd)
	galleryWarmCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel requests")
}

func runGalleryWarm(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx, stop := signalContext()
	defer stop()

	g, err := gallery.Load(galleryDir(cmd, cfg.Gallery.Dir))
	if err != nil {
		return err
	}
	refs := g.References()
	if len(refs) == 0 {
		fmt.Println("No reference photos found")
		return nil
	}

	var store database.ReferenceStore
	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer pool.Close()
		store = postgres.NewReferenceRepository(pool)
	}

	client := fingerprint.NewClient(cfg.Embedding.URL)
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("embedding server: %w", err)
	}
	faces := fingerprint.NewFaceService(client, store)

	bar := progressbar.NewOptions(len(refs),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	start := time.Now()
	var noFace, failed atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, mustGetInt(cmd, "concurrency")))
	for _, path := range refs {
		eg.Go(func() error {
			defer bar.Add(1)
			ref, err := faces.Reference(egCtx, path)
			switch {
			case err != nil && egCtx.Err() != nil:
				return egCtx.Err()
			case err != nil:
				failed.Add(1)
				fmt.Printf("\nWarning: %s: %v\n", path, err)
			case !ref.HasFace():
				noFace.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	bar.Finish()

	fmt.Printf("\nWarmed %d reference photos in %s", len(refs), time.Since(start).Round(time.Millisecond))
	if n := noFace.Load(); n > 0 {
		fmt.Printf(", %d without a face", n)
	}
	if n := failed.Load(); n > 0 {
		fmt.Printf(", %d failed", n)
	}
	fmt.Println()
	if store != nil {
		if count, err := store.Count(context.Background()); err == nil {
			fmt.Printf("%d reference embeddings stored in PostgreSQL\n", count)
		}
	}
	return nil
}
