// Package seeds generates the seed-fact lists that murder-mystery generation
// samples from: names, relationships, scenes, weapons, motives and
// suspicious behaviors.
package seeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/logger"
	"github.com/Yates-Labs/sleuth/internal/model"
	"github.com/Yates-Labs/sleuth/internal/paths"
)

var (
	ErrInvalidResponse  = errors.New("invalid seed response")
	ErrEmptyItems       = errors.New("seed response has no items")
	ErrRetriesExhausted = errors.New("seed generation exhausted retries")
)

// DefaultRetries is the number of attempts per category.
const DefaultRetries = 5

// ModeSync tags metadata of calls made one at a time.
const ModeSync = "sync"

// Metadata describes one completed category call, successful or not.
type Metadata struct {
	Fn         string    `json:"fn"`
	Mode       string    `json:"mode"`
	BatchIndex int       `json:"batch_index"`
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model"`
	Attempts   int       `json:"attempts"`
	DurationMS int64     `json:"duration_ms"`
	ItemCount  int       `json:"item_count"`
	Error      string    `json:"error,omitempty"`
}

// Hook observes call metadata. Hooks must not fail the call.
type Hook func(Metadata)

// Config controls a Generator.
type Config struct {
	// OutputDir receives one seed-fact file per category per pass.
	OutputDir string
	// Retries bounds attempts per category. Zero means DefaultRetries.
	Retries int
	Hooks   []Hook
	Logger  *zap.Logger
}

// Generator issues the category battery against a model and persists the
// returned lists.
type Generator struct {
	model model.Model
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// NewGenerator returns a Generator writing to cfg.OutputDir. m and the
// output directory are required.
func NewGenerator(m model.Model, cfg Config) (*Generator, error) {
	if m == nil {
		return nil, errors.New("seeds: model is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("seeds: output directory is required")
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}

	return &Generator{
		model: m,
		cfg:   cfg,
		log:   logger.OrNop(cfg.Logger).With(zap.String("component", "seeds")),
		now:   time.Now,
	}, nil
}

// Generate asks the model for the items of c, retrying on errors, sentinel
// responses and unusable payloads. Hooks run once per call.
func (g *Generator) Generate(ctx context.Context, c Category, pass int) ([]string, error) {
	start := g.now()

	var (
		items    []string
		lastErr  error
		attempts int
	)
	for attempts = 1; attempts <= g.cfg.Retries; attempts++ {
		items, lastErr = g.attempt(ctx, c)
		if lastErr == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.log.Debug("seed attempt failed",
			zap.String("category", c.Name),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
	}
	if attempts > g.cfg.Retries {
		attempts = g.cfg.Retries
	}

	var err error
	if lastErr != nil {
		err = fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, c.Name, attempts, lastErr)
		items = nil
	}

	meta := Metadata{
		Fn:         "create_" + c.Name,
		Mode:       ModeSync,
		BatchIndex: pass,
		Timestamp:  start,
		Model:      g.model.Name(),
		Attempts:   attempts,
		DurationMS: g.now().Sub(start).Milliseconds(),
		ItemCount:  len(items),
	}
	if err != nil {
		meta.Error = err.Error()
	}
	for _, hook := range g.cfg.Hooks {
		hook(meta)
	}

	return items, err
}

func (g *Generator) attempt(ctx context.Context, c Category) ([]string, error) {
	resp, err := g.model.Inference(ctx, c.Prompt, model.WithResponseSchema(SeedFactSchema))
	if err != nil {
		return nil, err
	}
	if resp.APIError {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, resp.Error)
	}
	return parseItems(resp.Text)
}

// parseItems decodes {"items": [...]}, tolerating a fenced code block.
func parseItems(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var payload struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	items := make([]string, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	return items, nil
}

// Persist writes {"<category>": items} to
// <OutputDir>/<category>_<pass>_<unix-millis>.json and returns the path.
func (g *Generator) Persist(category string, pass int, items []string) (string, error) {
	if err := paths.Ensure(g.cfg.OutputDir); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(map[string][]string{category: items}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", category, err)
	}

	name := fmt.Sprintf("%s_%d_%d.json", category, pass, g.now().UnixMilli())
	path := filepath.Join(g.cfg.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RunPass generates and persists every category once. The first failure
// ends the pass; files already written stay.
func (g *Generator) RunPass(ctx context.Context, pass int) ([]string, error) {
	var files []string
	for _, c := range Categories {
		items, err := g.Generate(ctx, c, pass)
		if err != nil {
			return files, err
		}
		path, err := g.Persist(c.Name, pass, items)
		if err != nil {
			return files, err
		}
		g.log.Info("seed facts saved",
			zap.String("category", c.Name),
			zap.Int("pass", pass),
			zap.Int("items", len(items)),
			zap.String("path", path))
		files = append(files, path)
	}
	return files, nil
}

// Report summarizes a Run.
type Report struct {
	Passes    int
	Completed int
	Failed    int
	Files     []string
}

// Run executes passes passes of the battery. A failing pass is logged and
// the next one starts; only context cancellation stops the loop early.
func (g *Generator) Run(ctx context.Context, passes int) (*Report, error) {
	report := &Report{Passes: passes}

	for pass := 0; pass < passes; pass++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		files, err := g.RunPass(ctx, pass)
		report.Files = append(report.Files, files...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			g.log.Error("seed pass failed", zap.Int("pass", pass), zap.Error(err))
			report.Failed++
			continue
		}
		report.Completed++
	}

	return report, nil
}
