package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/issue"
)

func newDescribeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <tool> <type>...",
		Short: "Explain issue types of a tool",
		Long: `Print the description of each issue type in the configured locale.
Use --locale to pick another language; unknown types print the type itself.`,
		Example: `  warnings describe findbugs NP_NULL_ON_SOME_PATH
  warnings --locale de describe spotbugs SE_BAD_FIELD`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			for n, typ := range args[1:] {
				i, err := issue.NewBuilder().SetPath("-").SetType(typ).Build()
				if err != nil {
					return err
				}
				text, err := s.engine.Describe(args[0], i, language.Und)
				if err != nil {
					return err
				}
				if n > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, locationColor.Sprint(typ))
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
}
