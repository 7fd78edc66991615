package convert

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Yates-Labs/sleuth/internal/paths"
)

const distilled = `{
  "microsoft/phi-4": {
    "murder mysteries": {
      "Phi-4-reasoning-plus": {
        "examples": [
          [{"qidx": 0, "prompt": "Who <b>killed</b> Mr. Body?", "output": "Mack & co", "gold_answer": "Mack", "correct": true}],
          [[{"qidx": 1, "prompt": "p1", "output": "o1", "gold_answer": "Ana", "correct": false}]],
          [{"qidx": "q-2", "prompt": "p2", "output": "o2", "gold_answer": 3, "correct": 1}]
        ]
      }
    }
  }
}`

// setupLayout writes content to the distill folder under a temp root.
func setupLayout(t *testing.T, name, content string) paths.Layout {
	t.Helper()
	layout := paths.New(t.TempDir())
	if err := paths.Ensure(layout.Distill); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(layout.Distill, name), []byte(content), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return layout
}

func readOutputLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestConverter_Run_Chat(t *testing.T) {
	layout := setupLayout(t, "phi4.json", distilled)

	res, err := New(layout, DefaultOptions(), nil).Run("phi4.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOut := filepath.Join(layout.GraniteLCoT, "phi4.jsonl")
	if res.Output != wantOut {
		t.Errorf("unexpected output path: %s", res.Output)
	}
	if res.Read != 1 || res.Written != 3 {
		t.Errorf("unexpected counts: %+v", res)
	}

	lines := readOutputLines(t, wantOut)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	want := `{"problem_id":0,"source":"microsoft/phi-4_murder mysteries_Phi-4-reasoning-plus","solution":"",` +
		`"conversations":[{"role":"user","content":"Who <b>killed</b> Mr. Body?"},{"role":"assistant","content":"Mack & co"}],` +
		`"ground_truth":"Mack","correct":true}`
	if lines[0] != want {
		t.Errorf("unexpected first record:\n got: %s\nwant: %s", lines[0], want)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if second["problem_id"] != float64(1) || second["ground_truth"] != "Ana" {
		t.Errorf("nested answer not unwrapped: %v", second)
	}

	if !strings.Contains(lines[2], `"problem_id":"q-2"`) || !strings.Contains(lines[2], `"ground_truth":3`) {
		t.Errorf("ids and answers should round-trip unchanged: %s", lines[2])
	}
}

func TestConverter_Run_Flat(t *testing.T) {
	layout := setupLayout(t, "phi4.json", distilled)
	opts := DefaultOptions()
	opts.Flat = true

	if _, err := New(layout, opts, nil).Run("phi4.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := readOutputLines(t, filepath.Join(layout.GraniteLCoT, "phi4.jsonl"))
	want := `{"problem_id":1,"source":"microsoft/phi-4_murder mysteries_Phi-4-reasoning-plus","solution":"",` +
		`"problem":"p1","response":"o1","ground_truth":"Ana","correct":false}`
	if lines[1] != want {
		t.Errorf("unexpected flat record:\n got: %s\nwant: %s", lines[1], want)
	}
	if strings.Contains(lines[0], "conversations") {
		t.Error("flat records must not carry conversations")
	}
}

func TestConverter_Run_CorrectOnly(t *testing.T) {
	layout := setupLayout(t, "phi4.json", distilled)
	opts := DefaultOptions()
	opts.CorrectOnly = true

	res, err := New(layout, opts, nil).Run("phi4.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Written != 2 {
		t.Errorf("expected 2 correct records, got %d", res.Written)
	}
	for _, line := range readOutputLines(t, res.Output) {
		if strings.Contains(line, `"correct":false`) {
			t.Errorf("incorrect record kept: %s", line)
		}
	}
}

func TestConverter_Run_JSONFormat(t *testing.T) {
	layout := setupLayout(t, "phi4.json", distilled)
	opts := DefaultOptions()
	opts.Format = "JSON"

	res, err := New(layout, opts, nil).Run("phi4.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != filepath.Join(layout.GraniteLCoT, "phi4.json") {
		t.Errorf("unexpected output path: %s", res.Output)
	}

	data, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var decoded []Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 3 || decoded[0].Conversations[1].Content != "Mack & co" {
		t.Errorf("unexpected records: %s", data)
	}
}

func TestConverter_Run_UnknownFormat(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	opts := DefaultOptions()
	opts.Format = "xml"

	_, err := New(paths.New(root), opts, nil).Run("phi4.json")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Error("no directories should be created for a rejected format")
	}
}

func TestConverter_Run_RequiresJSON(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	layout := paths.New(root)

	_, err := New(layout, DefaultOptions(), nil).Run("phi4.jsonl")
	if !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Error("no directories should be created for a rejected name")
	}
}

func TestConverter_Run_MissingInput(t *testing.T) {
	layout := paths.New(t.TempDir())

	_, err := New(layout, DefaultOptions(), nil).Run("absent.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "several answers",
			input:   `{"m": {"d": {"p": {"examples": [[{"qidx": 0}, {"qidx": 1}]]}}}}`,
			wantErr: ErrSeveralAnswers,
		},
		{
			name:    "missing model",
			input:   `{"other": {}}`,
			wantErr: ErrMissingKey,
		},
		{
			name:    "missing examples",
			input:   `{"m": {"d": {"p": {}}}}`,
			wantErr: ErrMissingKey,
		},
		{
			name:    "missing field",
			input:   `{"m": {"d": {"p": {"examples": [[{"qidx": 0, "prompt": "x"}]]}}}}`,
			wantErr: ErrMissingKey,
		},
		{
			name:    "empty answers",
			input:   `{"m": {"d": {"p": {"examples": [[]]}}}}`,
			wantErr: ErrInvalidExample,
		},
		{
			name:    "examples not a list",
			input:   `{"m": {"d": {"p": {"examples": {}}}}}`,
			wantErr: ErrUnexpectedShape,
		},
		{
			name:    "top level not an object",
			input:   `[1, 2]`,
			wantErr: ErrUnexpectedShape,
		},
	}

	opts := Options{Model: "m", Dataset: "d", PromptType: "p"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := readJSON(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			_, err = Convert(data, opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{json.Number("0"), false},
		{json.Number("0.0"), false},
		{json.Number("1"), true},
		{"", false},
		{"False", true},
		{[]any{}, false},
		{map[string]any{"a": 1}, true},
	}

	for _, tt := range tests {
		if got := truthy(tt.value); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestExportRecords(t *testing.T) {
	problem, response := "a < b", "yes"
	records := []Record{
		{ProblemID: 7, Source: "s", Problem: &problem, Response: &response, GroundTruth: "x", Correct: true},
	}

	var buf bytes.Buffer
	if err := ExportRecords(records, "JSON", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON array: %v", err)
	}
	if len(decoded) != 1 || *decoded[0].Problem != "a < b" {
		t.Errorf("unexpected export: %s", buf.String())
	}

	buf.Reset()
	if err := ExportRecords(nil, "json", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}

	err := ExportRecords(records, "xml", &buf)
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}
