package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/argoquant/dexterio/internal/backtest"
	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/job"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/reporoot"
)

func loadRunConfig(path string) (config.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.RunConfig{}, fmt.Errorf("failed to read run config %s: %w", path, err)
	}

	return config.Load(data)
}

func newRunner(repoRoot string, lg *logger.Logger) (*job.Runner, error) {
	srvCfg := config.DefaultServerConfig()

	if data, err := os.ReadFile(filepath.Join(repoRoot, "config", "server.yaml")); err == nil {
		_ = data // server.yaml is optional; a real deployment would unmarshal it here.
	}

	return job.NewRunner(repoRoot, srvCfg.MaxConcurrentJobs, srvCfg.NewsGateWasmPath, lg)
}

// runAction executes one backtest synchronously in-process, printing a
// progress bar, matching the teacher's direct engine.Run() CLI path.
func runAction(ctx context.Context, cmd *cli.Command) error {
	repoRoot := reporoot.Resolve()

	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()

	cfg, err := loadRunConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	artifactDir := cmd.String("out")
	if artifactDir == "" {
		artifactDir = reporoot.ResultsPath(repoRoot, cfg.RunName)
	}

	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	var bar *progressbar.ProgressBar

	result, err := backtest.Run(ctx, cfg, repoRoot, artifactDir, lg, nil, func(p backtest.Progress) {
		if bar == nil {
			bar = progressbar.Default(int64(p.TotalBars))
			bar.Describe(fmt.Sprintf("backtesting %s", cfg.RunName))
		}

		bar.Set(p.BarsProcessed)
	})
	if err != nil {
		return err
	}

	fmt.Printf("run complete: %d bars, %d trades, artifacts under %s\n",
		result.BarsProcessed, result.Summary.Trades, artifactDir)

	return nil
}

func submitAction(ctx context.Context, cmd *cli.Command) error {
	repoRoot := reporoot.Resolve()

	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()

	runner, err := newRunner(repoRoot, lg)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	jobID, err := runner.Submit(cfg)
	if err != nil {
		return err
	}

	fmt.Println(jobID)

	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	runner, err := newRunner(reporoot.Resolve(), nil)
	if err != nil {
		return err
	}

	rec, err := runner.Status(cmd.String("job-id"))
	if err != nil {
		return err
	}

	fmt.Printf("job=%s status=%s progress=%.2f\n", rec.JobID, rec.Status, rec.Progress)

	if rec.Error != nil {
		fmt.Printf("error: %s: %s\n", rec.Error.Kind, rec.Error.Message)
	}

	return nil
}

func logAction(ctx context.Context, cmd *cli.Command) error {
	runner, err := newRunner(reporoot.Resolve(), nil)
	if err != nil {
		return err
	}

	text, err := runner.Log(cmd.String("job-id"))
	if err != nil {
		return err
	}

	fmt.Print(text)

	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	runner, err := newRunner(reporoot.Resolve(), nil)
	if err != nil {
		return err
	}

	data, err := runner.Download(cmd.String("job-id"), cmd.String("artifact"))
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	return os.WriteFile(out, data, 0o644)
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	runner, err := newRunner(reporoot.Resolve(), nil)
	if err != nil {
		return err
	}

	entries, err := runner.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\n", e.JobID, e.Status, e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.ConfigSummary.RunName)
	}

	return nil
}

func resetStaleAction(ctx context.Context, cmd *cli.Command) error {
	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()

	_, err = newRunner(reporoot.Resolve(), lg)

	return err
}

func main() {
	jobIDFlag := &cli.StringFlag{Name: "job-id", Aliases: []string{"j"}, Required: true, Usage: "job identifier"}
	configFlag := &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true, Usage: "path to a run config yaml"}

	cmd := &cli.Command{
		Name:  "dexterio",
		Usage: "intraday equity-index backtesting engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one backtest synchronously and print a progress bar",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "artifact output directory"},
				},
				Action: runAction,
			},
			{
				Name:   "submit",
				Usage:  "submit a backtest job to the runner and print its job id",
				Flags:  []cli.Flag{configFlag},
				Action: submitAction,
			},
			{
				Name:   "status",
				Usage:  "show a job's status",
				Flags:  []cli.Flag{jobIDFlag},
				Action: statusAction,
			},
			{
				Name:   "log",
				Usage:  "print a job's log",
				Flags:  []cli.Flag{jobIDFlag},
				Action: logAction,
			},
			{
				Name:  "download",
				Usage: "download one of a job's artifacts",
				Flags: []cli.Flag{
					jobIDFlag,
					&cli.StringFlag{Name: "artifact", Aliases: []string{"a"}, Required: true, Usage: "artifact name, e.g. trades.parquet"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path; defaults to stdout"},
				},
				Action: downloadAction,
			},
			{
				Name:  "list",
				Usage: "list recent jobs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "max jobs to list"},
				},
				Action: listAction,
			},
			{
				Name:   "reset-stale",
				Usage:  "fail any running job whose worker handle was lost",
				Action: resetStaleAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
