package cli

import (
	"github.com/spf13/cobra"

	"github.com/km-arc/go-arc/framework/app"
	"github.com/km-arc/go-arc/internal/demo"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "arc",
	Short: "Contextual dependency-injection container",
	Long: `arc runs the demo application on top of the bean container and
inspects the beans it registers.

Configuration comes from .env files, an optional arc.yaml and ARC_*
environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) to load (default .env)")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

// newApplication builds the application with the demo provider registered.
func newApplication() (*app.Application, error) {
	a, err := app.New(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := a.Register(demo.Provider{}); err != nil {
		return nil, err
	}
	return a, nil
}
