// Package convert reshapes distilled model results into long chain-of-thought
// training records.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/logger"
	"github.com/Yates-Labs/sleuth/internal/paths"
)

var (
	ErrNotJSON         = errors.New("please provide a json input file")
	ErrMissingKey      = errors.New("missing key")
	ErrSeveralAnswers  = errors.New("several answers not supported")
	ErrInvalidExample  = errors.New("invalid example")
	ErrUnexpectedShape = errors.New("unexpected input shape")
)

const (
	DefaultModel      = "microsoft/phi-4"
	DefaultDataset    = "murder mysteries"
	DefaultPromptType = "Phi-4-reasoning-plus"
)

// Options selects the results to convert and the output shape.
type Options struct {
	Model      string
	Dataset    string
	PromptType string
	// Flat emits problem/response instead of conversations.
	Flat bool
	// CorrectOnly drops examples whose correct flag is falsy.
	CorrectOnly bool
	// Format is the output encoding. Empty means FormatJSONL.
	Format ExportFormat
}

// DefaultOptions selects the phi-4 murder-mystery results and writes JSON
// lines.
func DefaultOptions() Options {
	return Options{
		Model:      DefaultModel,
		Dataset:    DefaultDataset,
		PromptType: DefaultPromptType,
		Format:     FormatJSONL,
	}
}

// Source is the provenance tag written on every record.
func (o Options) Source() string {
	return o.Model + "_" + o.Dataset + "_" + o.PromptType
}

// Turn is one chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is one training example. Exactly one of Conversations or
// Problem/Response is set.
type Record struct {
	ProblemID     any     `json:"problem_id"`
	Source        string  `json:"source"`
	Solution      string  `json:"solution"`
	Conversations []Turn  `json:"conversations,omitempty"`
	Problem       *string `json:"problem,omitempty"`
	Response      *string `json:"response,omitempty"`
	GroundTruth   any     `json:"ground_truth"`
	Correct       any     `json:"correct"`
}

// Convert extracts model → dataset → prompt type → "examples" from data and
// turns each example into a Record.
func Convert(data any, opts Options) ([]Record, error) {
	node := data
	for _, key := range []string{opts.Model, opts.Dataset, opts.PromptType, "examples"} {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected object above %q", ErrUnexpectedShape, key)
		}
		if node, ok = obj[key]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
	}

	examples, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: examples must be a list", ErrUnexpectedShape)
	}

	source := opts.Source()
	records := make([]Record, 0, len(examples))
	for i, ex := range examples {
		in, err := unwrapExample(ex)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}

		rec, err := toRecord(in, source, opts.Flat)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		if opts.CorrectOnly && !truthy(rec.Correct) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// unwrapExample returns the single answer of an example. A nested
// one-element list is unwrapped once more.
func unwrapExample(ex any) (map[string]any, error) {
	answers, ok := ex.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of answers", ErrInvalidExample)
	}
	if len(answers) > 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSeveralAnswers, len(answers))
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no answers", ErrInvalidExample)
	}

	answer := answers[0]
	if nested, ok := answer.([]any); ok {
		if len(nested) == 0 {
			return nil, fmt.Errorf("%w: empty nested answer", ErrInvalidExample)
		}
		answer = nested[0]
	}

	in, ok := answer.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: answer is not an object", ErrInvalidExample)
	}
	return in, nil
}

func toRecord(in map[string]any, source string, flat bool) (Record, error) {
	for _, key := range []string{"qidx", "prompt", "output", "gold_answer", "correct"} {
		if _, ok := in[key]; !ok {
			return Record{}, fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
	}

	prompt, ok := in["prompt"].(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: prompt is not a string", ErrInvalidExample)
	}
	output, ok := in["output"].(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: output is not a string", ErrInvalidExample)
	}

	rec := Record{
		ProblemID:   in["qidx"],
		Source:      source,
		Solution:    "",
		GroundTruth: in["gold_answer"],
		Correct:     in["correct"],
	}
	if flat {
		rec.Problem = &prompt
		rec.Response = &output
	} else {
		rec.Conversations = []Turn{
			{Role: "user", Content: prompt},
			{Role: "assistant", Content: output},
		}
	}
	return rec, nil
}

// truthy follows the usual dynamic-language rules: false, zero, empty and
// null values are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// Result reports what a Run wrote.
type Result struct {
	Input   string
	Output  string
	Read    int
	Written int
}

// Converter runs conversions inside a paths.Layout.
type Converter struct {
	layout paths.Layout
	opts   Options
	log    *zap.Logger
}

// New returns a Converter reading from and writing to layout. A nil log
// disables logging.
func New(layout paths.Layout, opts Options, log *zap.Logger) *Converter {
	return &Converter{layout: layout, opts: opts, log: logger.OrNop(log)}
}

// Run converts <distill>/<inputName> into <granite long-cot>/<inputName>l,
// or <granite long-cot>/<inputName> with FormatJSON. inputName must end in
// .json and the format must be known; both are checked before any file
// access.
func (c *Converter) Run(inputName string) (*Result, error) {
	if !strings.HasSuffix(inputName, ".json") {
		return nil, fmt.Errorf("%w: got %s", ErrNotJSON, inputName)
	}

	format := ExportFormat(strings.ToLower(string(c.opts.Format)))
	outName := inputName
	switch format {
	case "", FormatJSONL:
		format = FormatJSONL
		outName += "l"
	case FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %s (supported: jsonl, json)", ErrUnsupportedFormat, c.opts.Format)
	}

	res := &Result{
		Input:  filepath.Join(c.layout.Distill, inputName),
		Output: filepath.Join(c.layout.GraniteLCoT, outName),
	}

	data, err := ReadInput(res.Input, ReadOptions{})
	if err != nil {
		return nil, err
	}
	res.Read = Count(data)
	c.log.Info("read samples", zap.Int("count", res.Read), zap.String("path", res.Input))

	records, err := Convert(data, c.opts)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", inputName, err)
	}

	if err := paths.Ensure(filepath.Dir(res.Output)); err != nil {
		return nil, err
	}
	f, err := os.Create(res.Output)
	if err != nil {
		return nil, err
	}
	if err := ExportRecords(records, string(format), f); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", res.Output, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	res.Written = len(records)
	c.log.Info("wrote records", zap.Int("count", res.Written), zap.String("path", res.Output))
	return res, nil
}
