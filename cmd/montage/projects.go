package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			projects, err := db.ListProjects()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.format != "text" {
				return a.encode(out, projects)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTRACKS\tCLIPS\tDURATION\tUPDATED")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", p.ID, p.Name, p.Tracks, p.Clips, p.Duration, p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <project>",
		Short: "Delete a stored project by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteProject(args[0]); err != nil {
				return err
			}
			a.logger.WithField("project", args[0]).Info("Deleted project")
			return nil
		},
	})
	return cmd
}
