package script

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"montage/internal/timeline"
	"montage/internal/undo"
)

// Result is the outcome of one executed step. Value holds the created id
// or the suggested position, -1 otherwise.
type Result struct {
	Index int    `json:"index" yaml:"index"`
	Op    string `json:"op" yaml:"op"`
	OK    bool   `json:"ok" yaml:"ok"`
	Value int    `json:"value" yaml:"value"`
}

// Report summarizes a run.
type Report struct {
	Script  string         `json:"script" yaml:"script"`
	Results []Result       `json:"results" yaml:"results"`
	Aliases map[string]int `json:"aliases" yaml:"aliases"`
	Failed  int            `json:"failed" yaml:"failed"`
}

// Runner replays scripts against one model. Undo and redo steps drive the
// stack the model pushes to.
type Runner struct {
	model   *timeline.Model
	stack   *undo.Stack
	logger  *logrus.Logger
	aliases map[string]int
}

// NewRunner creates a runner over model and the stack it was built with.
func NewRunner(model *timeline.Model, stack *undo.Stack, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		model:   model,
		stack:   stack,
		logger:  logger,
		aliases: make(map[string]int),
	}
}

// Alias returns the id bound to name by an earlier step.
func (r *Runner) Alias(name string) (int, bool) {
	id, ok := r.aliases[name]
	return id, ok
}

// Run executes every step in order. It stops at the first step whose
// outcome differs from its expectation, or that refers to something that
// does not exist.
func (r *Runner) Run(s *Script) (*Report, error) {
	report := &Report{Script: s.Name}
	defer func() {
		report.Aliases = make(map[string]int, len(r.aliases))
		for k, v := range r.aliases {
			report.Aliases[k] = v
		}
	}()

	for i := 0; i < s.Tracks; i++ {
		if _, ok := r.model.RequestTrackInsertion(-1); !ok {
			return report, fmt.Errorf("failed to create track %d", i)
		}
	}

	for i, step := range s.Steps {
		res, err := r.exec(step)
		res.Index = i + 1
		res.Op = step.Op
		if err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		report.Results = append(report.Results, res)

		entry := r.logger.WithFields(logrus.Fields{
			"step":  i + 1,
			"op":    step.Op,
			"ok":    res.OK,
			"value": res.Value,
		})
		wantOK := step.Expect != ExpectFail
		if res.OK != wantOK {
			report.Failed++
			entry.Warn("Step outcome differs from expectation")
			return report, fmt.Errorf("step %d (%s): got ok=%v: %w", i+1, step.Op, res.OK, ErrUnexpected)
		}
		if !res.OK {
			entry.Debug("Request rejected as expected")
		} else {
			entry.Debug("Applied step")
		}
		if step.Want != nil && res.Value != *step.Want {
			report.Failed++
			return report, fmt.Errorf("step %d (%s): got %d, want %d: %w", i+1, step.Op, res.Value, *step.Want, ErrUnexpected)
		}
		if step.As != "" && res.OK {
			r.aliases[step.As] = res.Value
		}
	}

	return report, nil
}

func (r *Runner) exec(step Step) (Result, error) {
	res := Result{Value: -1}
	m := r.model

	switch step.Op {
	case "track_insert":
		position := -1
		if step.Lane != nil {
			position = *step.Lane
		}
		res.Value, res.OK = m.RequestTrackInsertion(position)

	case "track_delete":
		trackID, err := r.track(step, false)
		if err != nil {
			return res, err
		}
		res.OK = m.RequestTrackDeletion(trackID)

	case "clip_insert":
		trackID, err := r.track(step, true)
		if err != nil {
			return res, err
		}
		res.Value, res.OK = m.RequestClipInsertion(step.Source, trackID, step.Position, true)

	case "composition_insert":
		trackID, err := r.track(step, false)
		if err != nil {
			return res, err
		}
		res.Value, res.OK = m.RequestCompositionInsertion(step.Kind, trackID, step.Position, step.Length, true)

	case "move", "suggest_move":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		trackID, err := r.track(step, false)
		if err != nil {
			return res, err
		}
		if step.Op == "suggest_move" {
			if m.IsClip(itemID) {
				res.Value = m.SuggestClipMove(itemID, trackID, step.Position)
			} else {
				res.Value = m.SuggestCompositionMove(itemID, trackID, step.Position)
			}
			res.OK = true
		} else if m.IsClip(itemID) {
			res.OK = m.RequestClipMove(itemID, trackID, step.Position, true, true)
		} else {
			res.OK = m.RequestCompositionMove(itemID, trackID, step.Position, true, true)
		}

	case "group_move":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		if !m.IsInGroup(itemID) {
			return res, nil
		}
		res.OK = m.RequestGroupMove(itemID, m.GetRootID(itemID), step.DeltaTrack, step.Delta, true, true)

	case "resize":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		res.OK = m.RequestItemResize(itemID, step.Size, step.Right, true, step.Snap)

	case "trim", "cut":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		if !m.IsClip(itemID) {
			return res, fmt.Errorf("%s is not a clip: %w", step.Item, ErrUnknownRef)
		}
		if step.Op == "trim" {
			res.OK = m.RequestClipTrim(itemID, step.Delta, step.Right, true)
		} else {
			res.Value, res.OK = m.RequestClipCut(itemID, step.Position, true)
		}

	case "delete", "delete_group":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		if step.Op == "delete" {
			res.OK = m.RequestItemDeletion(itemID, true)
		} else {
			res.OK = m.RequestGroupDeletion(itemID, true)
		}

	case "group":
		var members []int
		for _, ref := range step.Items {
			id, err := r.item(ref)
			if err != nil {
				return res, err
			}
			members = append(members, id)
		}
		res.Value, res.OK = m.RequestClipsGroup(members)

	case "ungroup":
		itemID, err := r.item(step.Item)
		if err != nil {
			return res, err
		}
		res.OK = m.RequestClipUngroup(itemID)

	case "undo":
		res.OK = r.stack.Undo()

	case "redo":
		res.OK = r.stack.Redo()

	case "reset":
		res.OK = m.RequestReset()

	case "check":
		if err := m.CheckConsistency(); err != nil {
			return res, err
		}
		res.OK = true

	default:
		return res, fmt.Errorf("%q: %w", step.Op, ErrUnknownOp)
	}
	return res, nil
}

// resolve maps an alias or a numeric id.
func (r *Runner) resolve(ref string) (int, error) {
	if id, ok := r.aliases[ref]; ok {
		return id, nil
	}
	id, err := strconv.Atoi(ref)
	if err != nil {
		return -1, fmt.Errorf("%q: %w", ref, ErrUnknownRef)
	}
	return id, nil
}

func (r *Runner) item(ref string) (int, error) {
	id, err := r.resolve(ref)
	if err != nil {
		return -1, err
	}
	if !r.model.IsClip(id) && !r.model.IsComposition(id) {
		return -1, fmt.Errorf("item %q: %w", ref, ErrUnknownRef)
	}
	return id, nil
}

// track resolves the step's track, by lane when set. With optional, a step
// naming no track yields -1.
func (r *Runner) track(step Step, optional bool) (int, error) {
	if step.Lane != nil {
		id := r.model.GetTrackIDByPosition(*step.Lane)
		if id == -1 {
			return -1, fmt.Errorf("lane %d: %w", *step.Lane, ErrUnknownRef)
		}
		return id, nil
	}
	if step.Track == "" {
		if optional {
			return -1, nil
		}
		return -1, fmt.Errorf("missing track: %w", ErrUnknownRef)
	}
	id, err := r.resolve(step.Track)
	if err != nil {
		return -1, err
	}
	if !r.model.IsTrack(id) {
		return -1, fmt.Errorf("track %q: %w", step.Track, ErrUnknownRef)
	}
	return id, nil
}
