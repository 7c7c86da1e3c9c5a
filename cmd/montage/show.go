package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"montage/internal/media"
	"montage/internal/timeline"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Print a stored project by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			project, snap, err := db.LoadProject(args[0])
			if err != nil {
				return err
			}

			// Rebuilding checks the stored timeline against the catalog.
			bin := media.NewBin()
			sources, err := db.GetAllSources()
			if err != nil {
				return err
			}
			for _, s := range sources {
				bin.Add(s)
			}
			opts, _ := a.modelOptions(bin)
			if _, _, err := timeline.FromSnapshot(opts, snap); err != nil {
				a.logger.WithError(err).WithField("project", project.Name).Warn("Project does not rebuild against the source catalog")
			}

			out := cmd.OutOrStdout()
			if a.format != "text" {
				project.Duration = snap.Duration
				return a.encode(out, struct {
					Project  any `json:"project" yaml:"project"`
					Timeline any `json:"timeline" yaml:"timeline"`
				}{project, snap})
			}
			fmt.Fprintf(out, "%s (%s) %.2f fps, updated %s\n\n", project.Name, project.ID, project.FPS, project.UpdatedAt.Format("2006-01-02 15:04"))
			return printSnapshot(out, snap)
		},
	}
}
