package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/config"
	"tasnim.dev/eksops/internal/constants"
	"tasnim.dev/eksops/internal/logging"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	env        string
	cluster    string
	region     string
	profile    string
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	stderr io.Writer
}

// NewRootCmd builds the eksops command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Update, validate, back up and roll back Amazon EKS clusters",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag parsing succeeded; runtime errors should not print usage.
			cmd.SilenceUsage = true

			if err := logging.Setup(g.logLevel, g.logFormat, g.stderr); err != nil {
				return err
			}
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			g.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.env, "env", "e", "", "Target environment: dev, staging or production")
	pf.StringVarP(&g.cluster, "cluster", "c", "", "EKS cluster name (default eks-<env>)")
	pf.StringVarP(&g.region, "region", "r", "", "AWS region to use")
	pf.StringVarP(&g.profile, "profile", "p", "", "AWS profile to use")
	pf.StringVar(&g.configPath, "config", "", "Config file (default ~/.config/eksops/config.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	root.AddCommand(
		newUpdateCmd(g),
		newValidateCmd(g),
		newBackupCmd(g),
		newRollbackCmd(g),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// errHelp is returned by Execute when help was shown instead of running a
// command, so the process still exits non-zero.
var errHelp = errors.New("help requested")

// Execute runs the root command. Help output counts as a failed run.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCmd())
}

func execute(ctx context.Context, root *cobra.Command) error {
	helpShown := false
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(c *cobra.Command, args []string) {
		helpShown = true
		defaultHelp(c, args)
	})

	if err := root.ExecuteContext(ctx); err != nil {
		return err
	}
	if helpShown {
		return errHelp
	}
	return nil
}

// IsHelp reports whether err only signals that help was printed.
func IsHelp(err error) bool {
	return errors.Is(err, errHelp)
}
