package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type toolRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SmallIcon string `json:"small_icon"`
	LargeIcon string `json:"large_icon"`
}

func newToolsCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the supported tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var rows []toolRow
			for _, e := range s.engine.Registry().Entries() {
				labels := e.Labels()
				rows = append(rows, toolRow{
					ID:        e.ID,
					Name:      labels.Name(),
					SmallIcon: labels.SmallIconRef(),
					LargeIcon: labels.LargeIconRef(),
				})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "text":
				cells := make([][]string, len(rows))
				for i, r := range rows {
					cells[i] = []string{r.ID, r.Name, r.SmallIcon}
				}
				return table(out, []string{"ID", "NAME", "ICON"}, cells, nil)
			default:
				return fmt.Errorf("unknown format %q (expected text|json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text|json)")
	return cmd
}
