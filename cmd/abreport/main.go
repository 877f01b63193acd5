package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LJTian/KpopABLab/internal/config"
	"github.com/LJTian/KpopABLab/internal/report"
	"github.com/LJTian/KpopABLab/internal/storage"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		date   string
		logDir string
	)
	cmd := &cobra.Command{
		Use:          "abreport",
		Short:        "Summarize one day of headline A/B exposure logs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if logDir == "" {
				logDir = cfg.LogDir
			}
			day := config.Now()
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = d
			}

			log := storage.NewEventLog(logDir, cfg.LogBOM)
			events, err := log.Read(day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintf(out, "no log rows in %s\n", log.PathFor(day))
				return nil
			}

			overall, rows := report.Summarize(events)
			fmt.Fprintf(out, "%s: %d rows\n", log.PathFor(day), len(events))
			report.RenderTable(out, overall, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "UTC date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "log directory (default LOG_DIR)")
	return cmd
}
