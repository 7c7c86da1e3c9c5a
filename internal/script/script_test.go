package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"montage/internal/engine"
	"montage/internal/media"
	"montage/internal/timeline"
	"montage/internal/undo"
)

func newRunner(t *testing.T) (*Runner, *timeline.Model) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	bin := media.NewBin()
	bin.AddLength("a", 100)
	bin.AddLength("b", 20)
	bin.AddLength("c", 10)

	stack := undo.NewStack(0, logger)
	model := timeline.NewModel(timeline.Options{
		Backend: engine.NewTractor(logger),
		Bin:     bin,
		Stack:   stack,
		Logger:  logger,
	})
	return NewRunner(model, stack, logger), model
}

const groupScript = `
name = "grouping"
tracks = 2

[[step]]
op = "clip_insert"
as = "a"
source = "a"
lane = 0
position = 0

[[step]]
op = "clip_insert"
source = "b"
lane = 0
position = 50
expect = "fail"

[[step]]
op = "clip_insert"
as = "b"
source = "b"
lane = 1
position = 10

[[step]]
op = "group"
as = "g"
items = ["a", "b"]

[[step]]
op = "group_move"
item = "a"
delta = 200

[[step]]
op = "check"

[[step]]
op = "undo"

[[step]]
op = "check"
`

func TestRunTOMLScript(t *testing.T) {
	s, err := Parse([]byte(groupScript), "toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	runner, model := newRunner(t)

	report, err := runner.Run(s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Script != "grouping" || len(report.Results) != len(s.Steps) || report.Failed != 0 {
		t.Errorf("Unexpected report %+v", report)
	}

	a, _ := runner.Alias("a")
	b, _ := runner.Alias("b")
	g, ok := runner.Alias("g")
	if !ok || !model.IsGroup(g) {
		t.Fatalf("Group alias not bound")
	}
	if model.GetClipPosition(a) != 0 || model.GetClipPosition(b) != 10 {
		t.Errorf("Undo did not restore positions: a=%d b=%d", model.GetClipPosition(a), model.GetClipPosition(b))
	}
	if report.Aliases["a"] != a {
		t.Error("Report aliases missing")
	}
}

const suggestScript = `
tracks: 2
steps:
  - {op: clip_insert, as: a, source: a, lane: 0, position: 0}
  - {op: clip_insert, as: c, source: c, lane: 1, position: 500}
  - {op: suggest_move, item: c, lane: 1, position: 150, want: 150}
  - {op: move, item: c, lane: 1, position: 150}
  - {op: trim, item: c, delta: 2, right: true}
  - {op: cut, item: a, position: 40, as: a2}
  - {op: delete, item: a2}
  - {op: check}
`

func TestRunYAMLScript(t *testing.T) {
	s, err := Parse([]byte(suggestScript), "yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	runner, model := newRunner(t)

	if _, err := runner.Run(s); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	c, _ := runner.Alias("c")
	a, _ := runner.Alias("a")
	if model.GetClipPosition(c) != 150 || model.GetClipPlaytime(c) != 8 {
		t.Errorf("Clip c at %d length %d", model.GetClipPosition(c), model.GetClipPlaytime(c))
	}
	if model.GetClipPlaytime(a) != 40 || model.GetClipsCount() != 2 {
		t.Errorf("Cut not applied: a length %d, %d clips", model.GetClipPlaytime(a), model.GetClipsCount())
	}
}

func TestRunStopsAtUnexpectedOutcome(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{
			name: "rejected insertion expected ok",
			body: "tracks: 1\nsteps:\n  - {op: clip_insert, source: missing, lane: 0, position: 0}\n",
			want: ErrUnexpected,
		},
		{
			name: "wrong suggestion",
			body: "tracks: 1\nsteps:\n  - {op: clip_insert, as: a, source: a, lane: 0}\n  - {op: suggest_move, item: a, lane: 0, position: 5, want: 6}\n",
			want: ErrUnexpected,
		},
		{
			name: "unknown alias",
			body: "tracks: 1\nsteps:\n  - {op: delete, item: nope}\n",
			want: ErrUnknownRef,
		},
		{
			name: "missing lane",
			body: "tracks: 1\nsteps:\n  - {op: clip_insert, source: a, lane: 3}\n",
			want: ErrUnknownRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.body), "yaml")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			runner, model := newRunner(t)
			if _, err := runner.Run(s); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if err := model.CheckConsistency(); err != nil {
				t.Errorf("Model inconsistent after failed run: %v", err)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	if _, err := Parse([]byte("steps = []"), "json"); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
	if _, err := Parse([]byte("[[step]]\nop = \"explode\"\n"), "toml"); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Expected ErrUnknownOp, got %v", err)
	}
	if _, err := Parse([]byte("steps:\n  - {op: undo, expect: maybe}\n"), "yaml"); err == nil {
		t.Error("Expected invalid expect to be rejected")
	}
	if _, err := Parse([]byte("steps:\n  - {op: undo, bogus: 1}\n"), "yaml"); err == nil {
		t.Error("Expected unknown yaml field to be rejected")
	}
}

func TestLoadNamesScriptAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.yml")
	if err := os.WriteFile(path, []byte("steps:\n  - {op: check}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Name != "intro" || len(s.Steps) != 1 {
		t.Errorf("Unexpected script %+v", s)
	}
}
