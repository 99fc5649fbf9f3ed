package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/config"
)

var (
	configFile string
	dbPath     string
	tokenFlag  string
	verbose    bool

	v   *viper.Viper
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Changelog - Sync GitHub commit history and summarize it with an LLM",
	Long: `Changelog mirrors the commit history of GitHub repositories into a local
database and turns the newest commits into a short summary with a name,
a description and tags.

Use 'changelog sync owner/repo' to fetch commits, 'changelog summarize owner/repo'
to summarize them and 'changelog serve' to run the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && !cmd.Flags().Changed("v") {
			if err := flag.Set("v", "2"); err != nil {
				return fmt.Errorf("failed to raise log verbosity: %w", err)
			}
		}

		var err error
		v, err = config.NewViper(configFile)
		if err != nil {
			return err
		}
		if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
			v.Set("database.path", dbPath)
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		VerboseLog("Using database %s (%s)", cfg.Database.Path, cfg.Database.Driver)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	defer klog.Flush()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./changelog.yaml or ~/.changelog/changelog.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Custom database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "GitHub token (overrides config, GITHUB_TOKEN and the keyring)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")
}

func IsVerbose() bool {
	return verbose
}

// VerboseLog logs at klog verbosity 2, which --verbose enables.
func VerboseLog(format string, args ...interface{}) {
	klog.V(2).Infof(format, args...)
}
