package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"modelsync/internal/registry"
	"modelsync/internal/selection"
	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List backend models with their lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.buildAPI(tracing.Noop())
			if err != nil {
				return err
			}
			models, err := api.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			recs, errs := registry.RecordsFromModels(models)
			for _, e := range errs {
				a.log.Warn().Err(e).Msg("skipping model")
			}
			sel := selection.Choose(recs, a.cfg.DefaultModel)
			views := make([]types.ModelView, 0, len(recs))
			for _, r := range recs {
				views = append(views, r.View(r.ID == sel))
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(types.LocalModelsResponse{Models: views, Selected: sel})
			}
			return printModels(a.out, views)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printModels(w io.Writer, views []types.ModelView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tSTATE\tPROGRESS\tNAME")
	for _, v := range views {
		mark := ""
		if v.IsSelected {
			mark = "*"
		}
		progress := "-"
		if p := registry.ProgressFromWire(v.Progress); p != nil {
			progress = fmt.Sprintf("%.1f%%", p.Completion())
		}
		state := v.State
		if v.Error != "" {
			state += " (" + v.Error + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, v.ID, state, progress, v.Name)
	}
	return tw.Flush()
}
