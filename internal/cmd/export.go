package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/MeKo-Tech/lochistory/internal/datestr"
	"github.com/MeKo-Tech/lochistory/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportCmd = &cobra.Command{
	Use:   "export <date>",
	Short: "Render every month of a year or every day of a month to a directory",
	Long: `Export renders the views one level below <date> headlessly and in parallel:
the twelve months of a YYYY year, or the days of a YYYY-MM month. A YYYY-MM-DD
day exports just that day.

Each view is written as <fragment>.html; views with a map also get
<fragment>.geojson.`,
	Example: `  lochistory export 2025-12 --out ./snapshots --workers 4`,
	Args:    cobra.ExactArgs(1),
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "./export", "Output directory")
	exportCmd.Flags().Int("workers", runtime.NumCPU(), "Number of views rendered in parallel")
	exportCmd.Flags().Bool("progress", true, "Show a progress bar on stderr")
	exportCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some views fail")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, exportCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("export.out", "out")
	mustBind("export.workers", "workers")
	mustBind("export.progress", "progress")
	mustBind("export.allow_failures", "allow-failures")
}

func runExport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	d, err := datestr.Parse(args[0])
	if err != nil {
		return err
	}

	outDir := viper.GetString("export.out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	h, err := newHeadless()
	if err != nil {
		return err
	}

	tasks := exportTasks(d)

	var progress *worker.Progress
	if viper.GetBool("export.progress") {
		progress = worker.NewProgress(len(tasks), cmd.ErrOrStderr())
	} else {
		progress = worker.NewProgress(len(tasks), nil)
	}

	pool := worker.New(worker.Config{
		Workers:    viper.GetInt("export.workers"),
		Renderer:   &exporter{h: h, dir: outDir},
		OnProgress: progress.Callback(),
	})

	logger.Info("exporting views", "date", d.String(), "views", len(tasks), "out", outDir)
	results := pool.Run(cmd.Context(), tasks)
	progress.Done()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("failed to export view", "fragment", r.Task.Fragment, "error", r.Err)
		}
	}
	logger.Info(progress.Summary())

	if failed > 0 && !viper.GetBool("export.allow_failures") {
		return fmt.Errorf("%d of %d views failed", failed, len(tasks))
	}
	return nil
}

// exportTasks lists the views below d, or d itself for a day.
func exportTasks(d datestr.Date) []worker.Task {
	dates := d.Children()
	if len(dates) == 0 {
		dates = []datestr.Date{d}
	}

	tasks := make([]worker.Task, len(dates))
	for i, child := range dates {
		tasks[i] = worker.Task{Fragment: child.String()}
	}
	return tasks
}

// exporter writes one headless snapshot per task.
type exporter struct {
	h   *headless
	dir string
}

func (e *exporter) Render(ctx context.Context, fragment string) (string, error) {
	snap, err := e.h.render(ctx, fragment)
	if err != nil {
		return "", err
	}

	htmlPath := filepath.Join(e.dir, fragment+".html")
	if err := os.WriteFile(htmlPath, []byte(snap.HTML+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}

	if snap.Map != nil {
		if err := writeGeoJSON(filepath.Join(e.dir, fragment+".geojson"), snap.Map); err != nil {
			return "", err
		}
	}
	return htmlPath, nil
}
