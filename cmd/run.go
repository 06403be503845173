package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/agent"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/config"
	"github.com/spigell/talent-sourcer/internal/logger"
)

// Exit codes for the thin command runner.
const (
	exitOK          = 0
	exitValidation  = 2
	exitUnavailable = 3
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sourcing job (or a batch) and print the result as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("job", "f", "", "path to a job spec file (yaml or json)")
	runCmd.Flags().StringP("batch", "b", "", "path to a json file holding a list of job specs")
	runCmd.Flags().IntP("parallelism", "p", 0, "batch parallelism (default from config)")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Error("getting a config", zap.Error(err))
		os.Exit(exitValidation)
	}

	zlog.Info("starting the talent-sourcer", zap.String("version", version))

	jobPath := cmd.Flag("job").Value.String()
	batchPath := cmd.Flag("batch").Value.String()
	if jobPath == "" && batchPath == "" {
		zlog.Error("a job spec is required", zap.String("hint", "pass --job <file> or --batch <file>"))
		os.Exit(exitValidation)
	}

	eng, cleanup, err := buildEngine(ctx, cfg, zlog)
	if err != nil {
		zlog.Error("building the engine", zap.Error(err))
		os.Exit(exitUnavailable)
	}
	defer cleanup()

	if batchPath != "" {
		runBatch(ctx, cmd, eng, batchPath, zlog)
		return
	}

	job, err := loadJobSpec(jobPath)
	if err != nil {
		zlog.Error("loading job spec", zap.Error(err))
		os.Exit(exitValidation)
	}

	result, err := eng.Run(ctx, job)
	if err != nil {
		exitForRunError(err, zlog)
	}

	printJSON(result)
}

func runBatch(ctx context.Context, cmd *cobra.Command, eng *agent.Agent, path string, zlog *zap.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		zlog.Error("reading batch file", zap.Error(err))
		os.Exit(exitValidation)
	}

	var jobs []*candidate.JobSpec
	if err := json.Unmarshal(data, &jobs); err != nil {
		zlog.Error("parsing batch file", zap.Error(err))
		os.Exit(exitValidation)
	}

	parallelism, _ := cmd.Flags().GetInt("parallelism")
	results := eng.RunBatch(ctx, jobs, parallelism)

	printJSON(results)
}

// loadJobSpec reads a spec from a yaml or json file through viper so both
// formats decode into the same structure. Unknown keys are rejected so a
// typoed field fails loudly instead of silently changing the search.
func loadJobSpec(path string) (*candidate.JobSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading job spec: %w", err)
	}

	settings := v.AllSettings()
	if len(settings) == 0 {
		return nil, errors.New("job spec is empty")
	}

	var job candidate.JobSpec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &job,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("building job spec decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("parsing job spec: %w", err)
	}

	return &job, nil
}

func exitForRunError(err error, zlog *zap.Logger) {
	switch {
	case errors.Is(err, agent.ErrInvalidJob):
		zlog.Error("job spec rejected", zap.Error(err))
		os.Exit(exitValidation)
	case errors.Is(err, agent.ErrBusy):
		zlog.Error("engine is busy", zap.Error(err))
		os.Exit(exitUnavailable)
	default:
		zlog.Error("job failed", zap.Error(err))
		os.Exit(exitUnavailable)
	}
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encoding result: %s", err)
	}
	fmt.Println(string(pretty))
}
