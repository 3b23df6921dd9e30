// Package commands implements the activityagent CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/activityagent/config"
	"github.com/hupe1980/activityagent/logging"
)

const defaultEnvFile = ".env"

var (
	// Global flags
	configPath string
	envFile    string

	// Loaded in PersistentPreRunE
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "activityagent",
	Short: "Productivity assistant that turns requests into activities",
	Long: `activityagent - a chat reply service backed by an LLM agent.

The agent has one tool, create_activity, which structures a user's request
into an activity with a name and a duration in seconds.

Configuration is read from an optional YAML file (--config) and from
environment variables, which win. A .env file is loaded first when present.

Examples:
  # Run the HTTP service on port 3000
  OPENAI_API_KEY=sk-... activityagent serve

  # Generate a single reply
  activityagent reply "Create an activity named Running that lasts for 30 minutes"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		globalConfig = cfg
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "path to a .env file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replyCmd)
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config, out io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.NewSlogAdapter(logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: strings.ToLower(cfg.Log.Format),
		Output: out,
	}))
}
