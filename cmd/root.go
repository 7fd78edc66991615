package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/config"
	"github.com/Yates-Labs/sleuth/internal/logger"
	"github.com/Yates-Labs/sleuth/internal/paths"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Sleuth - murder mystery dataset tooling",
	Long: `Sleuth builds and reshapes synthetic murder-mystery reasoning datasets.

It converts distilled model results into long chain-of-thought training
records, generates the seed facts mysteries are sampled from, and runs
one-off inference against remote or local models.

Data folders are resolved against SLEUTH_ROOT_DIR or SLEUTH_ROOT (default:
current directory).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func layout() paths.Layout {
	return paths.New(cfg.RootDir)
}
