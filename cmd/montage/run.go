package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"montage/internal/script"
	"montage/internal/timeline"
)

func newRunCmd(a *app) *cobra.Command {
	var saveAs string

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an edit script against a fresh timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			bin, err := a.loadBin(cmd.Context(), db)
			if err != nil {
				return err
			}

			model, report, err := a.replay(s, bin)
			if report != nil {
				if perr := a.printReport(cmd, report, model); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

			if saveAs != "" {
				id, err := db.SaveProject(saveAs, a.cfg.Timeline.FPS, model.Snapshot())
				if err != nil {
					return err
				}
				a.logger.WithFields(logrus.Fields{
					"project": saveAs,
					"id":      id,
				}).Info("Saved project")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&saveAs, "save", "", "Store the resulting timeline under this project name")
	return cmd
}

// replay runs s on a new model. Scripts that create no tracks of their own
// start with the configured default tracks.
func (a *app) replay(s *script.Script, bin timeline.SourceBin) (*timeline.Model, *script.Report, error) {
	opts, stack := a.modelOptions(bin)
	model := timeline.NewModel(opts)

	changes := model.Subscribe()
	counted := make(chan int)
	go func() {
		n := 0
		for range changes {
			n++
		}
		counted <- n
	}()

	if s.Tracks == 0 {
		s.Tracks = a.cfg.Timeline.DefaultTracks
	}
	runner := script.NewRunner(model, stack, a.logger)
	report, err := runner.Run(s)

	model.Unsubscribe(changes)
	a.logger.WithFields(logrus.Fields{
		"script":  s.Name,
		"changes": <-counted,
		"undo":    stack.Len(),
	}).Debug("Script replayed")

	if err != nil {
		return model, report, fmt.Errorf("script %s: %w", s.Name, err)
	}
	if err := model.CheckConsistency(); err != nil {
		return model, report, err
	}
	return model, report, nil
}
