package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/cosmic-fill/internal/config"
	"github.com/kingrea/cosmic-fill/internal/module"
)

type stepOptions struct {
	moduleID    string
	requirement string
	configFile  string
	sets        keyValueFlag
}

func newStepCmd(root *rootOptions) *cobra.Command {
	opts := &stepOptions{sets: keyValueFlag{}}
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run a single module against the data directory",
		Long: `Runs one registered module outside the pipeline. Module config comes from
--config-file (YAML) and repeatable --set key=value overrides.

Example:
  cosmicfill step --module write-value --name 新需求 --set slot=4 --set cell=D7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStep(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.moduleID, "module", "m", "", "module identifier to execute (e.g. copy-name)")
	cmd.Flags().StringVarP(&opts.requirement, "name", "n", "", "requirement name")
	cmd.Flags().StringVar(&opts.configFile, "config-file", "", "path to YAML file with module config")
	cmd.Flags().Var(&opts.sets, "set", "module config override (key=value, repeatable)")
	return cmd
}

func runStep(cmd *cobra.Command, root *rootOptions, opts *stepOptions) error {
	if strings.TrimSpace(opts.moduleID) == "" {
		return fmt.Errorf("--module is required")
	}
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	s, err := openSession(cfg, root.verbose, strings.TrimSpace(opts.requirement))
	if err != nil {
		return err
	}
	defer s.close()
	s.ctx = s.ctx.WithContext(cmd.Context())

	overrides, err := buildModuleConfig(opts.configFile, opts.sets)
	if err != nil {
		return fmt.Errorf("load config overrides: %w", err)
	}
	mod, err := s.registry.Resolve(opts.moduleID, overrides)
	if err != nil {
		return fmt.Errorf("resolve module: %w", err)
	}
	label := moduleLabel(mod.Info(), opts.moduleID)
	result, err := mod.Run(s.ctx.WithLogger(s.logger.With(zap.String("module", opts.moduleID))))
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", label, result.Status)
	if result.Message != "" {
		fmt.Fprintln(out, result.Message)
	}
	if result.Status == module.StatusFailed {
		return fmt.Errorf("%s failed", label)
	}
	return nil
}

type keyValueFlag map[string]string

var _ pflag.Value = (*keyValueFlag)(nil)

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}

func (kv *keyValueFlag) Type() string {
	return "key=value"
}

// buildModuleConfig merges the YAML file with --set overrides. Override
// values are decoded as YAML scalars so numbers and lists keep their type.
func buildModuleConfig(configFile string, overrides keyValueFlag) (module.Config, error) {
	var cfg module.Config
	if path := strings.TrimSpace(configFile); path != "" {
		fileCfg, err := readModuleConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if len(overrides) > 0 {
		if cfg == nil {
			cfg = module.Config{}
		}
		for key, value := range overrides {
			var decoded any
			if err := yaml.Unmarshal([]byte(value), &decoded); err != nil || decoded == nil {
				decoded = value
			}
			cfg[key] = decoded
		}
	}
	if len(cfg) == 0 {
		return nil, nil
	}
	return cfg, nil
}

func moduleLabel(info module.Info, fallback string) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return name
	}
	if id := strings.TrimSpace(info.ID); id != "" {
		return id
	}
	return strings.TrimSpace(fallback)
}

func readModuleConfigFile(path string) (module.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	cfg := make(module.Config, len(raw))
	for key, value := range raw {
		cfg[key] = value
	}
	return cfg, nil
}
