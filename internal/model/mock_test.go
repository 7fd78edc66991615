package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockModel_Sequence(t *testing.T) {
	m := NewMockModel("one", "two")
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := m.Inference(ctx, "p")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, resp.Text)
	}

	want := []string{"one", "two", "two"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if m.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", m.Calls())
	}
}

func TestMockModel_EchoAndOptions(t *testing.T) {
	m := NewMockModel()

	resp, err := m.Inference(context.Background(), "echo me",
		WithSystemPrompt("sys"),
		WithResponseSchema(ResponseSchema{Name: "items"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "echo me" {
		t.Errorf("expected prompt echo, got %q", resp.Text)
	}
	if m.LastPrompt() != "echo me" || m.LastSystemPrompt() != "sys" || m.LastSchemaName() != "items" {
		t.Errorf("call not recorded: %q %q %q", m.LastPrompt(), m.LastSystemPrompt(), m.LastSchemaName())
	}
}

func TestMockModel_Error(t *testing.T) {
	want := errors.New("boom")
	m := NewMockModelWithError(want)

	if _, err := m.Inference(context.Background(), "p"); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestResolveOptions(t *testing.T) {
	c := resolveOptions([]Option{nil, WithMaxTokens(5), WithEcho(false)})

	if c.maxTokens(100) != 5 {
		t.Errorf("expected override 5, got %d", c.maxTokens(100))
	}
	if c.echo(true) {
		t.Error("expected echo override false")
	}
	if c.temperature(0.7) != 0.7 {
		t.Errorf("expected default temperature, got %v", c.temperature(0.7))
	}
	if c.stopToken("x") != "x" {
		t.Errorf("expected default stop token, got %q", c.stopToken("x"))
	}
}
