// Command multicompare aggregates taxonomic classification results from many
// samples into one hierarchy annotated with per-sample counts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multicompare/internal/config"
	"multicompare/internal/core"
	"multicompare/internal/logging"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(stderr, "multicompare: %v\n", err)
		return 1
	}
	return 0
}

// app carries state shared by subcommands once the root pre-run has loaded
// configuration and built the logger.
type app struct {
	stdout, stderr io.Writer

	configPath string
	logLevel   string

	cfg    config.Config
	zap    *zap.Logger
	logger core.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "multicompare",
		Short:         "Aggregate per-sequence taxonomic assignments across samples",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	root.AddCommand(newParseCmd(a), newRunsCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	l, err := logging.New(a.stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.zap = l
	a.logger = logging.NewZap(l)
	return nil
}
