package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcscales/internal/config"
	"mcscales/internal/logging"
	"mcscales/internal/pdfset"
)

var (
	// Global flags
	verbose    bool
	configPath string
	outputDir  string
	workers    int

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mcscales",
	Short: "Derive LHAPDF grid sets from an MCscales PDF set",
	Long: `mcscales builds new LHAPDF grid sets out of the replicas of an MCscales
set, selecting replicas by the scale multipliers recorded in their headers.
Each new set gets renumbered copies of the selected replicas and a freshly
averaged central member.

New sets are written to the configured output directory (default: the
current directory). Sets given by bare name are looked up in LHAPDF_DATA_PATH.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output-dir") {
			loaded.OutputDir = outputDir
		}
		if cmd.Flags().Changed("workers") {
			loaded.Workers = workers
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration %s: %w", path, err)
		}

		l, err := logging.New(loaded.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger, cfg = l, loaded
		logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("path", path),
			zap.String("output_dir", cfg.OutputDir),
			zap.Int("workers", cfg.Workers),
			zap.Strings("search_paths", cfg.SearchPaths))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/mcscales/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory new sets are written to")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Maximum concurrent replica reads and copies")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{cmd: cmd, err: err}
	})

	rootCmd.AddCommand(partitionCmd)
	rootCmd.AddCommand(theoryDrivenCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(groupsCmd)
}

func main() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if logger != nil {
		_ = logger.Sync()
	}
	os.Exit(code)
}

// usageError is a malformed command line.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// positional wraps a positional argument validator so its failures are
// reported as usage errors.
func positional(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := fn(cmd, a); err != nil {
			return usageError{cmd: cmd, err: err}
		}
		return nil
	}
}

// exitCode logs err and maps it to the process exit status: 0 on success,
// 1 for validation failures and 2 for anything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if logger == nil {
		logger, _ = logging.New(config.DefaultConfig().Logging, false)
		if logger == nil {
			logger = zap.NewNop()
		}
	}

	var ve *pdfset.ValidationError
	var ue usageError
	switch {
	case errors.As(err, &ve):
		logger.Error("Error processing script: " + ve.Error())
		return 1
	case errors.As(err, &ue):
		logger.Error(ue.Error())
		if ue.cmd != nil {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", ue.cmd.CommandPath())
		}
		return 2
	default:
		logger.Error("Unexpected error occurred. Please report it", zap.Error(err))
		return 2
	}
}

func currentConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openSet resolves arg against the search paths and validates the set.
func openSet(arg string) (*pdfset.Set, error) {
	path := pdfset.Locate(arg, currentConfig().SearchPaths)
	set, err := pdfset.Validate(path)
	if err != nil {
		return nil, err
	}
	n, err := set.Len()
	if err != nil {
		return nil, err
	}
	logging.For(logger, logging.CategoryValidate).Debug("grid set is valid",
		zap.String("path", set.Path()), zap.Int("members", n))
	return set, nil
}

// newBuilder returns a builder writing into the configured output
// directory, creating it if needed.
func newBuilder() (*pdfset.Builder, error) {
	c := currentConfig()
	dir, err := c.ResolvedOutputDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &pdfset.Builder{
		Folder:  dir,
		Workers: c.Workers,
		Logger:  logging.For(logger, logging.CategoryBuild),
		Codec:   logging.For(logger, logging.CategoryCodec),
	}, nil
}

// checkProcess fails unless process is declared by set.
func checkProcess(set *pdfset.Set, process string) error {
	valid, err := set.Processes()
	if err != nil {
		return err
	}
	for _, p := range valid {
		if p == process {
			return nil
		}
	}
	return pdfset.Invalid(set.Path(), "Invalid process. For %s, the valid choices are %q. Got '%s'", set.Name(), valid, process)
}
