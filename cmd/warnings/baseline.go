package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/baseline"
)

func newBaselineCmd(root *rootOptions) *cobra.Command {
	var (
		output  string
		charset string
	)
	cmd := &cobra.Command{
		Use:   "baseline <tool> <report>...",
		Short: "Record the current issues as a baseline",
		Long: `Parse the reports and write the fingerprints of every issue to a baseline
file. Pass the file to "parse --baseline" to report only issues introduced later.

Unlike parse, any report that cannot be parsed fails the command.`,
		Example: `  warnings baseline -o warnings-baseline.json findbugs target/findbugsXml.xml`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reqs := make([]warnings.Request, 0, len(args)-1)
			for _, p := range args[1:] {
				reqs = append(reqs, warnings.Request{Tool: args[0], Path: p, Charset: charset})
			}
			results, err := s.engine.ParseAll(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			b := baseline.FromCollection(warnings.Merge(results...))
			if err := b.Save(output); err != nil {
				return fmt.Errorf("failed to write baseline: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d fingerprints to %s\n", b.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "warnings-baseline.json", "baseline file to write")
	cmd.Flags().StringVar(&charset, "charset", "", "charset of the reports (default: configuration or UTF-8)")
	return cmd
}
