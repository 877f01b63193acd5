package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LJTian/KpopABLab/internal/buzz"
	"github.com/LJTian/KpopABLab/internal/collector"
	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/logging"
	"github.com/LJTian/KpopABLab/internal/storage"
)

type options struct {
	days       int
	artistsCSV string
	out        string
	report     string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	today := time.Now().UTC().Format("2006-01-02")
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "kbuzz",
		Short:        "Compute the K-Buzz index for a list of artists",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.days, "days", 14, "pageview window in days")
	cmd.Flags().StringVar(&opts.artistsCSV, "artists_csv", "data/artists.sample.csv", "artists CSV (artist,wikipedia_article,youtube_channel_id)")
	cmd.Flags().StringVar(&opts.out, "out", fmt.Sprintf("data/kbuzz_%s.csv", today), "output CSV path")
	cmd.Flags().StringVar(&opts.report, "report", "reports/RESULTS.md", "top-10 report path")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequireYouTubeKey(); err != nil {
		return err
	}

	artists, err := buzz.LoadArtists(opts.artistsCSV)
	if err != nil {
		return err
	}

	fetchOpts := collector.FetchOptions{Timeout: cfg.HTTPTimeout}
	p := &buzz.Pipeline{
		YouTube: collector.NewYouTubeClient(cfg.YouTubeAPIKey, fetchOpts),
		Wiki:    collector.NewWikiClient(fetchOpts),
		Days:    opts.days,
		Logger:  logger,
	}
	if cfg.LastFMAPIKey != "" {
		p.LastFM = collector.NewLastFMClient(cfg.LastFMAPIKey, fetchOpts)
	} else {
		logger.Warn("LASTFM_API_KEY missing, continuing without Last.fm signals")
	}

	rows := p.Run(cmd.Context(), artists)
	if err := buzz.WriteCSV(opts.out, rows); err != nil {
		return err
	}
	if err := buzz.WriteReport(opts.report, rows); err != nil {
		return err
	}

	if cfg.PostgresDSN != "" {
		saveSnapshots(cmd, cfg.PostgresDSN, rows, logger)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s and %s\n", opts.out, opts.report)
	return nil
}

// saveSnapshots 入库失败只告警，文件输出已经完成
func saveSnapshots(cmd *cobra.Command, dsn string, rows []buzz.Row, logger *zap.Logger) {
	store, err := storage.OpenBuzzStore(dsn)
	if err != nil {
		logger.Warn("open buzz store failed", zap.Error(err))
		return
	}
	runDate := config.Now().Format("2006-01-02")
	if err := store.SaveRun(cmd.Context(), runDate, buzz.ToSnapshots(runDate, rows)); err != nil {
		logger.Warn("save buzz snapshots failed", zap.Error(err))
		return
	}
	logger.Info("buzz snapshots saved", zap.String("run_date", runDate), zap.Int("rows", len(rows)))
}
