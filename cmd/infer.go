package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/cache"
	"github.com/Yates-Labs/sleuth/internal/model"
)

var (
	inferEngine      string
	inferLocal       string
	inferLowMemory   bool
	inferMode        string
	inferSystem      string
	inferTemperature float64
	inferMaxTokens   int
	inferNoCache     bool
)

var inferCmd = &cobra.Command{
	Use:   "infer [prompt...]",
	Short: "Run prompts against a remote or local model",
	Long: `Run one or more prompts against a remote RITS engine or a local model.

Responses are cached in Redis when REDIS_ADDRESS is set, and in memory for
the duration of the command otherwise. Remote calls are retried; when every
attempt fails the printed response is the prompt followed by the last error.

Required environment variables (remote engines):
  RITS_API_KEY     - RITS gateway key

Examples:
  sleuth infer "Who had the strongest motive?" --mode chat
  sleuth infer "Describe the study." --engine meta-llama/llama-3-1-70b-instruct
  sleuth infer "Name the weapon." --local phi4 --max-tokens 256`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfer,
}

func init() {
	rootCmd.AddCommand(inferCmd)
	inferCmd.Flags().StringVar(&inferEngine, "engine", "microsoft/phi-4",
		"Remote engine, one of: "+strings.Join(model.SupportedEngines(), ", "))
	inferCmd.Flags().StringVar(&inferLocal, "local", "", "Use a locally served model with this name instead of a remote engine")
	inferCmd.Flags().BoolVar(&inferLowMemory, "low-memory", false, "Load the local model in reduced-memory mode")
	inferCmd.Flags().StringVar(&inferMode, "mode", model.EndpointCompletion, "Remote endpoint: completion or chat")
	inferCmd.Flags().StringVar(&inferSystem, "system", "", "System prompt (chat and local models)")
	inferCmd.Flags().Float64Var(&inferTemperature, "temperature", 0, "Sampling temperature override")
	inferCmd.Flags().IntVar(&inferMaxTokens, "max-tokens", 0, "Maximum tokens override")
	inferCmd.Flags().BoolVar(&inferNoCache, "no-cache", false, "Bypass the response cache")
}

func runInfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, closeStore, err := openCache(ctx)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer closeStore()

	m, err := buildModel(store)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	var opts []model.Option
	if inferSystem != "" {
		opts = append(opts, model.WithSystemPrompt(inferSystem))
	}
	if cmd.Flags().Changed("temperature") {
		opts = append(opts, model.WithTemperature(inferTemperature))
	}
	if cmd.Flags().Changed("max-tokens") {
		opts = append(opts, model.WithMaxTokens(inferMaxTokens))
	}

	for _, prompt := range args {
		fmt.Println()
		fmt.Println(headerStyle.Render("Prompt:"))
		fmt.Println(promptStyle.Render(prompt))
		fmt.Println()

		resp, err := m.Inference(ctx, prompt, opts...)
		if err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}

		if resp.APIError {
			fmt.Println(errorStyle.Render("Request failed after all attempts:"))
			fmt.Println(mutedStyle.Render(resp.Error))
			continue
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("Response (%s):", m.Name())))
		fmt.Println(answerStyle.Render(strings.TrimSpace(resp.Text)))
	}

	if remote, ok := m.(*model.RemoteModel); ok && remote.TotalCost() > 0 {
		fmt.Println()
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Total cost: %.6f", remote.TotalCost())))
	}
	fmt.Println()
	return nil
}

// openCache returns the Redis store when configured, a process-local store
// otherwise, or nil when caching is disabled.
func openCache(ctx context.Context) (cache.Store, func(), error) {
	noop := func() {}
	if inferNoCache {
		return nil, noop, nil
	}
	if cfg.Redis.Address == "" {
		log.Debug("REDIS_ADDRESS not set, using in-memory cache")
		return cache.NewMemoryStore(), noop, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, noop, err
	}
	log.Debug("using redis cache", zap.String("address", cfg.Redis.Address))
	return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func buildModel(store cache.Store) (model.Model, error) {
	policy := cache.PolicyFromConfig(cfg.Cache)

	if inferLocal != "" {
		local, err := model.NewLocalModel(model.LocalConfig{
			ModelName:   inferLocal,
			ServerURL:   cfg.Local.ServerURL,
			LowMemory:   inferLowMemory,
			Cache:       store,
			CachePolicy: policy,
			Logger:      log,
		})
		if err != nil {
			return nil, err
		}
		return local, nil
	}

	apiKey, err := cfg.RequireAPIKey()
	if err != nil {
		return nil, err
	}

	remoteCfg := model.DefaultRemoteConfig(inferEngine)
	remoteCfg.APIKey = apiKey
	remoteCfg.Endpoint = inferMode
	remoteCfg.MaxAttempts = cfg.Remote.MaxAttempts
	remoteCfg.RateLimitWait = cfg.Remote.RateLimitWait
	remoteCfg.Cache = store
	remoteCfg.CachePolicy = policy
	remoteCfg.Logger = log

	remote, err := model.NewRemoteModel(remoteCfg)
	if err != nil {
		return nil, err
	}
	return remote, nil
}
