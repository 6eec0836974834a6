package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/config"
	"github.com/kingrea/cosmic-fill/internal/llm"
	"github.com/kingrea/cosmic-fill/internal/logbook"
	"github.com/kingrea/cosmic-fill/internal/logging"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules"
	"github.com/kingrea/cosmic-fill/internal/tui"
	"github.com/kingrea/cosmic-fill/internal/workflow"
	"github.com/kingrea/cosmic-fill/internal/workflow/engine"
)

type rootOptions struct {
	configPath string
	workflow   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cosmicfill",
		Short: "Fill a workload-estimation attachment package for a new requirement",
		Long: `cosmicfill renames the attachment package in the data directory to carry a
new requirement name, copies the name and derived totals between workbooks,
and asks the generation service for the overview, WBS rows and proposal
sections.

Configuration is read from cosmicfill.yaml (or $COSMICFILL_CONFIG).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFill(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to cosmicfill.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "write debug entries to the log file")
	cmd.Flags().StringVar(&opts.workflow, "workflow", "", "pipeline definition replacing the built-in one")
	cmd.AddCommand(newStepCmd(opts))
	return cmd
}

// session bundles what one invocation needs once a name is known.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	ctx      *module.ModuleContext
	registry *module.Registry
	close    func() error
}

func openSession(cfg *config.Config, verbose bool, requirement string) (*session, error) {
	if err := cfg.InitWorkDir(); err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.LogsDir(), verbose || cfg.File.Verbose)
	if err != nil {
		return nil, err
	}
	client := llm.NewHTTPClient(cfg.File.LLM, logger)
	ctx := module.NewContext(context.Background(), cfg, logger, client, requirement)
	reg := module.NewRegistry()
	modules.RegisterBuiltins(reg)
	return &session{cfg: cfg, logger: logger, ctx: ctx, registry: reg, close: closeLog}, nil
}

func runFill(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	name, err := tui.PromptRequirement(cmd.InOrStdin(), out)
	if err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintln(out, "未输入需求名称，已退出")
		return nil
	}

	s, err := openSession(cfg, opts.verbose, name)
	if err != nil {
		return err
	}
	defer s.close()
	s.ctx = s.ctx.WithContext(cmd.Context())

	path := opts.workflow
	if path == "" {
		path = cfg.File.Workflow
	}
	def, err := workflow.Load(path)
	if err != nil {
		return err
	}
	journal, err := logbook.New(filepath.Join(cfg.WorkDir(), logbook.FileName))
	if err != nil {
		return err
	}
	reporter := tui.NewReporter(out)
	eng, err := engine.New(s.registry, engine.NewRepository(cfg.RunsDir(), s.ctx.Artifacts),
		engine.WithReporter(reporter),
		engine.WithReporter(journal),
	)
	if err != nil {
		return err
	}
	s.logger.Info("fill started", zap.String("requirement", name), zap.String("data_dir", cfg.DataDir()))
	journal.Info("需求：%s", name)
	state, runErr := eng.Run(s.ctx, def)
	reporter.Summary(state)
	if runErr != nil {
		journal.Error("run %s halted: %s", state.RunID, state.StatusReason)
		return runErr
	}
	journal.Info("run %s complete", state.RunID)
	return nil
}
