package model

// Option overrides a request parameter for one Inference call.
type Option func(*callOptions)

// callOptions is part of the cache key, so fields only hold what the caller
// set explicitly.
type callOptions struct {
	Temperature  *float64        `json:"temperature,omitempty"`
	TopP         *float64        `json:"top_p,omitempty"`
	MaxTokens    *int            `json:"max_tokens,omitempty"`
	StopToken    *string         `json:"stop_token,omitempty"`
	NumSamples   *int            `json:"num_samples,omitempty"`
	Echo         *bool           `json:"echo,omitempty"`
	LogProbs     *int            `json:"log_probs,omitempty"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	Schema       *ResponseSchema `json:"schema,omitempty"`
}

// ResponseSchema constrains a chat response to a JSON schema.
type ResponseSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
}

func resolveOptions(opts []Option) callOptions {
	var c callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *callOptions) { c.Temperature = &t }
}

// WithTopP overrides nucleus sampling.
func WithTopP(p float64) Option {
	return func(c *callOptions) { c.TopP = &p }
}

// WithMaxTokens caps the generated tokens.
func WithMaxTokens(n int) Option {
	return func(c *callOptions) { c.MaxTokens = &n }
}

// WithStopToken ends generation at s.
func WithStopToken(s string) Option {
	return func(c *callOptions) { c.StopToken = &s }
}

// WithNumSamples requests n choices per call.
func WithNumSamples(n int) Option {
	return func(c *callOptions) { c.NumSamples = &n }
}

// WithEcho only applies to the completion endpoint.
func WithEcho(echo bool) Option {
	return func(c *callOptions) { c.Echo = &echo }
}

// WithLogProbs only applies to the completion endpoint.
func WithLogProbs(n int) Option {
	return func(c *callOptions) { c.LogProbs = &n }
}

// WithSystemPrompt prepends a system turn on chat-style backends.
func WithSystemPrompt(s string) Option {
	return func(c *callOptions) { c.SystemPrompt = s }
}

// WithResponseSchema requests structured JSON output on the chat endpoint.
func WithResponseSchema(schema ResponseSchema) Option {
	return func(c *callOptions) { c.Schema = &schema }
}

func (c callOptions) temperature(def float64) float64 {
	if c.Temperature != nil {
		return *c.Temperature
	}
	return def
}

func (c callOptions) topP(def float64) float64 {
	if c.TopP != nil {
		return *c.TopP
	}
	return def
}

func (c callOptions) maxTokens(def int) int {
	if c.MaxTokens != nil {
		return *c.MaxTokens
	}
	return def
}

func (c callOptions) stopToken(def string) string {
	if c.StopToken != nil {
		return *c.StopToken
	}
	return def
}

func (c callOptions) numSamples(def int) int {
	if c.NumSamples != nil {
		return *c.NumSamples
	}
	return def
}

func (c callOptions) echo(def bool) bool {
	if c.Echo != nil {
		return *c.Echo
	}
	return def
}

func (c callOptions) logProbs(def int) int {
	if c.LogProbs != nil {
		return *c.LogProbs
	}
	return def
}
