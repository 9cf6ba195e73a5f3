package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ibot/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ibot",
	Short: "iBot - documentation assistant for the iTethr team",
	Long: `iBot answers questions about the team's internal documentation. It indexes
the documents folder at startup, retrieves the most relevant passages for each
question, and streams answers from an OpenAI-compatible chat model.

Example usage:
  ibot serve                       # Start the HTTP server
  ibot query -q "deploy pipeline"  # Inspect what retrieval finds`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; keys may come from the real environment.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, wdErr := os.Getwd()
			if wdErr != nil {
				return fmt.Errorf("failed to get working directory: %w", wdErr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ibot.yaml)")
}

func GetConfig() *config.Config {
	return cfg
}
