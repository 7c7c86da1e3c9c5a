package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"montage/internal/script"
	"montage/internal/timeline"
	"montage/pkg/models"
)

func (a *app) encode(w io.Writer, v any) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("format %q has no encoder", a.format)
}

func (a *app) printReport(cmd *cobra.Command, report *script.Report, model *timeline.Model) error {
	out := cmd.OutOrStdout()
	if a.format != "text" {
		return a.encode(out, struct {
			Report   *script.Report  `json:"report" yaml:"report"`
			Timeline models.Snapshot `json:"timeline" yaml:"timeline"`
		}{report, model.Snapshot()})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tOP\tOK\tVALUE")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%d\t%s\t%v\t%d\n", r.Index, r.Op, r.OK, r.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return printSnapshot(out, model.Snapshot())
}

func printSnapshot(w io.Writer, snap models.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "duration\t%d frames\n", snap.Duration)
	fmt.Fprintln(tw, "TRACK\tITEM\tKIND\tSOURCE\tPOSITION\tPLAYTIME\tIN")
	for _, t := range snap.Tracks {
		fmt.Fprintf(tw, "%d\t\t\t\t\t\t\n", t.ID)
		for _, c := range snap.Clips {
			if c.TrackID == t.ID {
				fmt.Fprintf(tw, "\t%d\tclip\t%s\t%d\t%d\t%d\n", c.ID, c.SourceID, c.Position, c.Playtime, c.In)
			}
		}
		for _, c := range snap.Compositions {
			if c.TrackID == t.ID {
				fmt.Fprintf(tw, "\t%d\t%s\ta-track %d\t%d\t%d\t\n", c.ID, c.Kind, c.ATrack, c.Position, c.Playtime)
			}
		}
	}
	for _, g := range snap.Groups {
		fmt.Fprintf(tw, "group %d\t%v\t\t\t\t\t\n", g.ID, g.Children)
	}
	return tw.Flush()
}
