package timeline

import (
	"testing"

	"github.com/sirupsen/logrus"

	"montage/internal/engine"
	"montage/internal/undo"
)

type testBin map[string]int

func (b testBin) SourceLength(id string) (int, bool) {
	length, ok := b[id]
	return length, ok
}

type fixture struct {
	model   *Model
	stack   *undo.Stack
	tractor *engine.Tractor
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := quietLogger()
	tractor := engine.NewTractor(logger)
	stack := undo.NewStack(0, logger)
	bin := testBin{
		"a100": 100,
		"b20":  20,
		"c10":  10,
		"d100": 100,
		"e200": 200,
	}
	m := NewModel(Options{Backend: tractor, Bin: bin, Stack: stack, Logger: logger})
	return &fixture{model: m, stack: stack, tractor: tractor}
}

func (f *fixture) tracks(t *testing.T, n int) []int {
	t.Helper()
	var out []int
	for i := 0; i < n; i++ {
		id, ok := f.model.RequestTrackInsertion(-1)
		if !ok {
			t.Fatalf("Track insertion %d failed", i)
		}
		out = append(out, id)
	}
	return out
}

func (f *fixture) clip(t *testing.T, source string, trackID, position int) int {
	t.Helper()
	id, ok := f.model.RequestClipInsertion(source, trackID, position, true)
	if !ok {
		t.Fatalf("Insertion of %s at %d on track %d failed", source, position, trackID)
	}
	return id
}

func (f *fixture) consistent(t *testing.T) {
	t.Helper()
	if err := f.model.CheckConsistency(); err != nil {
		t.Fatalf("Model inconsistent: %v", err)
	}
}

func drain(ch <-chan Change) []Change {
	var out []Change
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		default:
			return out
		}
	}
}
