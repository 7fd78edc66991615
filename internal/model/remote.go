package model

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/cache"
	"github.com/Yates-Labs/sleuth/internal/logger"
)

const (
	EndpointCompletion = "completion"
	EndpointChat       = "chat"
)

// APIKeyHeader carries the RITS key; the bearer token is unused by the gateway.
const APIKeyHeader = "RITS_API_KEY"

const ritsHost = "https://inference-3scale-apicast-production.apps.rits.fmaas.res.ibm.com"

// engineEndpoints is the engine allow-list.
var engineEndpoints = map[string]string{
	"mistralai/mixtral-8x22B-instruct-v0.1": ritsHost + "/mixtral-8x22b-instruct-v01/v1",
	"ibm-granite/granite-3.0-8b-instruct":   ritsHost + "/granite-3-0-8b-instruct/v1",
	"ibm-granite/granite-3.1-8b-instruct":   ritsHost + "/granite-3-1-8b-instruct/v1",
	"meta-llama/llama-3-1-70b-instruct":     ritsHost + "/llama-3-1-70b-instruct/v1",
	"microsoft/phi-4":                       ritsHost + "/microsoft-phi-4/v1",
}

// BaseURLFor returns the endpoint of an allow-listed engine.
func BaseURLFor(engine string) (string, error) {
	url, ok := engineEndpoints[engine]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEngine, engine)
	}
	return url, nil
}

// SupportedEngines lists the allow-listed engines in sorted order.
func SupportedEngines() []string {
	engines := make([]string, 0, len(engineEndpoints))
	for engine := range engineEndpoints {
		engines = append(engines, engine)
	}
	slices.Sort(engines)
	return engines
}

// RemoteConfig shapes requests made by a RemoteModel. Start from
// DefaultRemoteConfig; zero values are sent as-is except where noted.
type RemoteConfig struct {
	Engine string
	APIKey string
	// Endpoint is "completion" or "chat" (case-insensitive). Empty means completion.
	Endpoint string
	// MaxAttempts bounds network calls per Inference. Zero means 60.
	MaxAttempts int

	Temperature float64
	TopP        float64
	MaxTokens   int
	StopToken   string // empty sends no stop sequence
	LogProbs    int    // completion only
	NumSamples  int
	Echo        bool // completion only

	// PromptCost and CompletionCost are per-token prices. Spend is tracked
	// only when both are set.
	PromptCost     float64
	CompletionCost float64

	// RateLimitWait is the base sleep after a rate-limited attempt; 1-10s of
	// jitter is added.
	RateLimitWait time.Duration
	// RequestTimeout bounds each attempt. Zero disables the per-attempt deadline.
	RequestTimeout time.Duration

	// ExtraBody fields are merged into every request body, e.g.
	// guided_decoding_backend for vLLM servers.
	ExtraBody map[string]any

	// Cache stores responses; nil disables caching.
	Cache       cache.Store
	CachePolicy cache.Policy

	Logger *zap.Logger
}

// DefaultRemoteConfig returns the request defaults for engine.
func DefaultRemoteConfig(engine string) RemoteConfig {
	return RemoteConfig{
		Engine:        engine,
		Endpoint:      EndpointCompletion,
		MaxAttempts:   60,
		Temperature:   1.0,
		TopP:          1.0,
		MaxTokens:     2049,
		LogProbs:      1,
		NumSamples:    1,
		Echo:          true,
		RateLimitWait: 60 * time.Second,
		CachePolicy:   cache.DefaultPolicy(),
	}
}

// RemoteModel calls an OpenAI-compatible endpoint with bounded retries. After
// the attempts are exhausted it returns a sentinel Response instead of an
// error so batch callers keep going.
type RemoteModel struct {
	cfg     RemoteConfig
	baseURL string
	client  openai.Client
	cache   *cache.Cached[*Response]
	log     *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration

	mu        sync.Mutex
	totalCost float64
}

// NewRemoteModel validates the engine and builds the client. Extra request
// options are applied after the defaults and win over them.
func NewRemoteModel(cfg RemoteConfig, opts ...option.RequestOption) (*RemoteModel, error) {
	baseURL, err := BaseURLFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	cfg.Endpoint = strings.ToLower(cfg.Endpoint)
	if cfg.Endpoint == "" {
		cfg.Endpoint = EndpointCompletion
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	if cfg.CachePolicy == (cache.Policy{}) {
		cfg.CachePolicy = cache.DefaultPolicy()
	}

	log := logger.OrNop(cfg.Logger).With(zap.String("engine", cfg.Engine))

	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey("EMPTY"),
		// retries are owned by Inference
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithHeader(APIKeyHeader, cfg.APIKey))
	}
	for key, value := range cfg.ExtraBody {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}
	reqOpts = append(reqOpts, opts...)

	m := &RemoteModel{
		cfg:     cfg,
		baseURL: baseURL,
		client:  openai.NewClient(reqOpts...),
		log:     log,
		sleep:   sleepContext,
		jitter:  rateLimitJitter,
	}
	if cfg.Cache != nil {
		m.cache = cache.New[*Response](cfg.Cache, cfg.CachePolicy, (*Response).Empty, log)
	}

	return m, nil
}

// Name returns the remote engine name.
func (m *RemoteModel) Name() string { return m.cfg.Engine }

// BaseURL returns the allow-listed endpoint selected for the engine.
func (m *RemoteModel) BaseURL() string { return m.baseURL }

// TotalCost returns the spend accumulated by uncached successful calls.
func (m *RemoteModel) TotalCost() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalCost
}

// keyAttrs lists the instance fields that take part in the cache key.
func (m *RemoteModel) keyAttrs() []cache.Attr {
	return []cache.Attr{
		{Name: "engine", Value: m.cfg.Engine},
		{Name: "num_samples", Value: m.cfg.NumSamples},
		{Name: "log_probs", Value: m.cfg.LogProbs},
		{Name: "echo", Value: m.cfg.Echo},
		{Name: "temperature", Value: m.cfg.Temperature},
		{Name: "top_p", Value: m.cfg.TopP},
		{Name: "stop_token", Value: m.cfg.StopToken},
		{Name: "max_tokens", Value: m.cfg.MaxTokens},
	}
}

// Inference dispatches prompt to the configured endpoint.
func (m *RemoteModel) Inference(ctx context.Context, prompt string, opts ...Option) (*Response, error) {
	call := resolveOptions(opts)

	if m.cfg.Endpoint != EndpointCompletion && m.cfg.Endpoint != EndpointChat {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, m.cfg.Endpoint)
	}

	key, err := cache.GenerateKey("rits", "inference", m.keyAttrs(), prompt, call)
	if err != nil {
		return nil, err
	}

	return m.cache.Do(ctx, key, func(ctx context.Context) (*Response, error) {
		var (
			out *Response
			err error
		)
		if m.cfg.Endpoint == EndpointChat {
			out, err = m.safeChatCall(ctx, prompt, call)
		} else {
			out, err = m.safeCompletionCall(ctx, prompt, call)
		}
		if err != nil {
			return nil, err
		}

		m.updateCost(out)
		return out, nil
	})
}

func (m *RemoteModel) safeCompletionCall(ctx context.Context, prompt string, call callOptions) (*Response, error) {
	params := openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(m.cfg.Engine),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		Temperature: openai.Float(call.temperature(m.cfg.Temperature)),
		TopP:        openai.Float(call.topP(m.cfg.TopP)),
		MaxTokens:   openai.Int(int64(call.maxTokens(m.cfg.MaxTokens))),
		Logprobs:    openai.Int(int64(call.logProbs(m.cfg.LogProbs))),
		N:           openai.Int(int64(call.numSamples(m.cfg.NumSamples))),
		Echo:        openai.Bool(call.echo(m.cfg.Echo)),
	}
	if stop := call.stopToken(m.cfg.StopToken); stop != "" {
		params.Stop = openai.CompletionNewParamsStopUnion{OfString: openai.String(stop)}
	}

	return m.withRetries(ctx, prompt, func(ctx context.Context) (*Response, error) {
		completion, err := m.client.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		return completionResponse(completion)
	})
}

func (m *RemoteModel) safeChatCall(ctx context.Context, prompt string, call callOptions) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if call.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(call.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(m.cfg.Engine),
		Messages:    messages,
		Temperature: openai.Float(call.temperature(m.cfg.Temperature)),
		TopP:        openai.Float(call.topP(m.cfg.TopP)),
		MaxTokens:   openai.Int(int64(call.maxTokens(m.cfg.MaxTokens))),
		N:           openai.Int(int64(call.numSamples(m.cfg.NumSamples))),
	}
	if stop := call.stopToken(m.cfg.StopToken); stop != "" {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfString: openai.String(stop)}
	}
	if call.Schema != nil {
		schema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   call.Schema.Name,
			Schema: call.Schema.Schema,
			Strict: openai.Bool(true),
		}
		if call.Schema.Description != "" {
			schema.Description = openai.String(call.Schema.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		}
	}

	return m.withRetries(ctx, prompt, func(ctx context.Context) (*Response, error) {
		completion, err := m.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		return chatResponse(completion)
	})
}

// withRetries runs call up to MaxAttempts times. Transient failures are
// logged and retried; fatal ones and caller cancellation are returned.
func (m *RemoteModel) withRetries(ctx context.Context, prompt string, call func(context.Context) (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		resp, err := m.attempt(ctx, call)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		kind := classify(err)
		if kind == failureFatal {
			return nil, fmt.Errorf("remote inference failed: %w", err)
		}
		lastErr = err

		m.log.Warn("remote inference attempt failed",
			zap.String("kind", kind.String()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.cfg.MaxAttempts),
			zap.Error(err))

		if kind == failureRateLimit && attempt < m.cfg.MaxAttempts {
			if err := m.sleep(ctx, m.cfg.RateLimitWait+m.jitter()); err != nil {
				return nil, err
			}
		}
	}

	m.log.Error("remote inference exhausted attempts, returning sentinel",
		zap.Int("max_attempts", m.cfg.MaxAttempts),
		zap.Error(lastErr))

	return sentinelResponse(prompt, lastErr), nil
}

func (m *RemoteModel) attempt(ctx context.Context, call func(context.Context) (*Response, error)) (*Response, error) {
	if m.cfg.RequestTimeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	return call(attemptCtx)
}

func (m *RemoteModel) updateCost(out *Response) {
	if out == nil || out.APIError {
		return
	}
	if m.cfg.PromptCost == 0 || m.cfg.CompletionCost == 0 {
		return
	}

	cost := float64(out.CompletionTokens)*m.cfg.CompletionCost + float64(out.PromptTokens)*m.cfg.PromptCost

	m.mu.Lock()
	m.totalCost += cost
	m.mu.Unlock()
}

func completionResponse(c *openai.Completion) (*Response, error) {
	if c == nil || len(c.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choices := make([]string, len(c.Choices))
	for i, choice := range c.Choices {
		choices[i] = choice.Text
	}
	return &Response{
		Text:             choices[0],
		Choices:          choices,
		Model:            c.Model,
		PromptTokens:     c.Usage.PromptTokens,
		CompletionTokens: c.Usage.CompletionTokens,
	}, nil
}

func chatResponse(c *openai.ChatCompletion) (*Response, error) {
	if c == nil || len(c.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choices := make([]string, len(c.Choices))
	for i, choice := range c.Choices {
		choices[i] = choice.Message.Content
	}
	return &Response{
		Text:             choices[0],
		Choices:          choices,
		Model:            c.Model,
		PromptTokens:     c.Usage.PromptTokens,
		CompletionTokens: c.Usage.CompletionTokens,
	}, nil
}
