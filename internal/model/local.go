package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/cache"
	"github.com/Yates-Labs/sleuth/internal/logger"
)

// Decoding defaults for local generation.
const (
	DefaultLocalMaxNewTokens = 30000
	DefaultLocalTemperature  = 0.8
	DefaultLocalTopP         = 0.95
)

// LocalConfig describes a locally served model.
type LocalConfig struct {
	ModelName string
	// ServerURL of the Ollama server, e.g. http://localhost:11434.
	ServerURL string
	// LowMemory loads the model in reduced-memory mode.
	LowMemory bool

	Cache       cache.Store
	CachePolicy cache.Policy
	Logger      *zap.Logger
}

// localKeyArgs are the call arguments that take part in the cache key.
type localKeyArgs struct {
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
}

// LocalModel generates with a model served by a local Ollama runtime. The
// client is created on the first uncached Inference call, so instances can
// be built freely.
//
// The cache key is the model name, the prompt and the system prompt: two calls
// that differ only in decoding parameters share an entry.
type LocalModel struct {
	cfg   LocalConfig
	cache *cache.Cached[*Response]
	log   *zap.Logger

	mu   sync.Mutex
	llm  llms.Model
	load func() (llms.Model, error)
}

// NewLocalModel validates cfg without contacting the runtime.
func NewLocalModel(cfg LocalConfig) (*LocalModel, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}
	if cfg.CachePolicy == (cache.Policy{}) {
		cfg.CachePolicy = cache.DefaultPolicy()
	}

	log := logger.OrNop(cfg.Logger).With(zap.String("model", cfg.ModelName))

	m := &LocalModel{cfg: cfg, log: log}
	m.load = m.loadOllama
	if cfg.Cache != nil {
		m.cache = cache.New[*Response](cfg.Cache, cfg.CachePolicy, (*Response).Empty, log)
	}
	return m, nil
}

// Name returns the local model name.
func (m *LocalModel) Name() string { return m.cfg.ModelName }

// Loaded reports whether the backing model client has been created.
func (m *LocalModel) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.llm != nil
}

func (m *LocalModel) loadOllama() (llms.Model, error) {
	opts := []ollama.Option{ollama.WithModel(m.cfg.ModelName)}
	if m.cfg.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(m.cfg.ServerURL))
	}
	if m.cfg.LowMemory {
		opts = append(opts, ollama.WithRunnerLowVRAM(true))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

func (m *LocalModel) ensureLoaded() (llms.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.llm != nil {
		return m.llm, nil
	}

	m.log.Info("loading local model", zap.Bool("low_memory", m.cfg.LowMemory))
	llm, err := m.load()
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", m.cfg.ModelName, err)
	}
	m.llm = llm
	return llm, nil
}

// Inference sends prompt as a single user turn; the runtime applies the
// model's chat template.
func (m *LocalModel) Inference(ctx context.Context, prompt string, opts ...Option) (*Response, error) {
	call := resolveOptions(opts)

	// the system turn changes the conversation, so it is keyed with the prompt
	key, err := cache.GenerateKey("hf", "inference", []cache.Attr{{Name: "model_name", Value: m.cfg.ModelName}},
		localKeyArgs{Prompt: prompt, System: call.SystemPrompt})
	if err != nil {
		return nil, err
	}

	return m.cache.Do(ctx, key, func(ctx context.Context) (*Response, error) {
		llm, err := m.ensureLoaded()
		if err != nil {
			return nil, err
		}

		messages := make([]llms.MessageContent, 0, 2)
		if call.SystemPrompt != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, call.SystemPrompt))
		}
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

		callOpts := []llms.CallOption{
			llms.WithMaxTokens(call.maxTokens(DefaultLocalMaxNewTokens)),
			llms.WithTemperature(call.temperature(DefaultLocalTemperature)),
			llms.WithTopP(call.topP(DefaultLocalTopP)),
		}
		if stop := call.stopToken(""); stop != "" {
			callOpts = append(callOpts, llms.WithStopWords([]string{stop}))
		}

		resp, err := llm.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return nil, fmt.Errorf("generate with %s: %w", m.cfg.ModelName, err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return nil, ErrEmptyResponse
		}

		choices := make([]string, len(resp.Choices))
		for i, choice := range resp.Choices {
			choices[i] = choice.Content
		}
		return &Response{
			Text:    choices[0],
			Choices: choices,
			Model:   m.cfg.ModelName,
		}, nil
	})
}
