package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/config"
	"github.com/Yates-Labs/sleuth/internal/model"
	"github.com/Yates-Labs/sleuth/internal/seeds"
)

var (
	seedPasses  int
	seedRetries int
	seedEngine  string
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Generate domain seed facts with a remote model",
	Long: `Generate the seed-fact lists murder mysteries are sampled from.

Each pass asks the model for nine lists (crime scenes, names, relationships,
weapons, motives and suspicious facts) and writes every list to
domain_seed_ibm/<category>_<pass>_<timestamp>.json. Call metadata is written
to rits_metadata/. A failing pass is logged and the next one starts.

Each request makes at most 3 network attempts (fewer when
SLEUTH_REMOTE_MAX_ATTEMPTS is lower); --retries repeats the whole request.

Required environment variables:
  RITS_API_KEY     - RITS gateway key

Examples:
  sleuth seeds
  sleuth seeds --passes 1 --retries 3`,
	Args: cobra.NoArgs,
	RunE: runSeeds,
}

func init() {
	rootCmd.AddCommand(seedsCmd)
	seedsCmd.Flags().IntVar(&seedPasses, "passes", 4, "Number of passes over the category battery")
	seedsCmd.Flags().IntVar(&seedRetries, "retries", seeds.DefaultRetries, "Attempts per category")
	seedsCmd.Flags().StringVar(&seedEngine, "engine", "ibm-granite/granite-3.1-8b-instruct", "Remote engine")
}

// seedClientAttempts caps network calls per seed request. The generator
// retries every category on top of this, so a category costs at most
// seedClientAttempts * --retries calls.
const seedClientAttempts = 3

func seedClientConfig(engine, apiKey string, remote config.RemoteConfig, log *zap.Logger) model.RemoteConfig {
	c := model.DefaultRemoteConfig(engine)
	c.APIKey = apiKey
	c.Endpoint = model.EndpointChat
	c.Temperature = 0.6
	c.MaxTokens = 1000
	c.MaxAttempts = seedClientAttempts
	if remote.MaxAttempts > 0 && remote.MaxAttempts < seedClientAttempts {
		c.MaxAttempts = remote.MaxAttempts
	}
	c.RateLimitWait = remote.RateLimitWait
	c.ExtraBody = map[string]any{
		"guided_decoding_backend": "xgrammar",
		"min_tokens":              1,
	}
	c.Logger = log
	return c
}

func runSeeds(cmd *cobra.Command, args []string) error {
	apiKey, err := cfg.RequireAPIKey()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m, err := model.NewRemoteModel(seedClientConfig(seedEngine, apiKey, cfg.Remote, log))
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	l := layout()
	metadata := seeds.NewMetadataWriter(l.Metadata, log)
	gen, err := seeds.NewGenerator(m, seeds.Config{
		OutputDir: l.DomainSeed,
		Retries:   seedRetries,
		Hooks:     []seeds.Hook{metadata.Hook},
		Logger:    log,
	})
	if err != nil {
		return err
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("→ Generating seeds with %s (%d passes)...", m.Name(), seedPasses)))

	report, err := gen.Run(ctx, seedPasses)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %d seed files to %s", len(report.Files), l.DomainSeed)))
	if report.Failed > 0 {
		fmt.Println(errorStyle.Render(fmt.Sprintf("%d of %d passes failed, see log for details", report.Failed, report.Passes)))
	}
	return nil
}
