package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/baseline"
	"github.com/zero-day-ai/warnings/issue"
)

type parseOptions struct {
	format      string
	output      string
	charset     string
	rank        bool
	minPriority string
	filter      string
	baseline    string
	failOn      string
}

func newParseCmd(root *rootOptions) *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <tool> <report>...",
		Short: "Parse reports of one tool",
		Long: `Parse one or more reports produced by the named tool and print the issues.

Reports are parsed concurrently. A report that cannot be parsed is reported
on stderr; the issues of the other reports are still printed.`,
		Example: `  warnings parse findbugs target/findbugsXml.xml
  warnings parse --format sarif -o warnings.sarif spotbugs a/spotbugsXml.xml b/spotbugsXml.xml
  warnings parse --filter 'category == "CORRECTNESS" && line > 0' findbugs findbugsXml.xml`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, root, opts, args[0], args[1:])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "text", "output format (text|json|sarif|csv)")
	flags.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	flags.StringVar(&opts.charset, "charset", "", "charset of the reports (default: configuration or UTF-8)")
	flags.BoolVar(&opts.rank, "rank", false, "map the bug rank instead of the confidence to the priority")
	flags.StringVar(&opts.minPriority, "min-priority", "", "drop issues less severe than this (error|high|normal|low)")
	flags.StringVar(&opts.filter, "filter", "", "CEL expression issues must match")
	flags.StringVar(&opts.baseline, "baseline", "", "only report issues not in this baseline file")
	flags.StringVar(&opts.failOn, "fail-on", "", "exit with status 2 when an issue at least this severe is reported")
	return cmd
}

func runParse(cmd *cobra.Command, root *rootOptions, opts *parseOptions, toolID string, paths []string) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	keep, err := opts.compileFilter()
	if err != nil {
		return err
	}
	var failOn issue.Priority
	if opts.failOn != "" {
		if failOn, err = issue.ParsePriority(opts.failOn); err != nil {
			return fmt.Errorf("invalid --fail-on: %w", err)
		}
	}

	s, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, err := s.engine.Registry().Entry(toolID)
	if err != nil {
		return err
	}

	reqs := make([]warnings.Request, len(paths))
	for i, p := range paths {
		reqs[i] = warnings.Request{Tool: toolID, Path: p, Charset: opts.charset}
		if cmd.Flags().Changed("rank") {
			settings := s.cfg.Settings(toolID, s.logger)
			settings.UseRankAsPriority = opts.rank
			reqs[i].Settings = &settings
		}
	}

	results, parseErr := s.engine.ParseAll(cmd.Context(), reqs)
	stderr := cmd.ErrOrStderr()
	if parseErr != nil {
		for _, err := range unwrapJoined(parseErr) {
			fmt.Fprintln(stderr, color.YellowString("warning:"), err)
		}
	}
	for _, r := range results {
		if r != nil && r.Stats.Malformed > 0 {
			fmt.Fprintf(stderr, "%s %s: skipped %d malformed records\n", color.YellowString("warning:"), r.Path, r.Stats.Malformed)
		}
	}

	issues := warnings.Merge(results...)
	if keep != nil {
		issues = issues.Filter(keep)
	}

	if opts.baseline != "" {
		b, err := baseline.Load(opts.baseline)
		if err != nil {
			return err
		}
		cmp := baseline.Compare(b, issues)
		fmt.Fprintf(stderr, "baseline: %d new, %d outstanding, %d fixed\n", cmp.New.Len(), cmp.Outstanding.Len(), len(cmp.Fixed))
		issues = cmp.New
	}

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := writeIssues(out, opts.format, issues, entry.Labels(), s.engine.Locale()); err != nil {
		return err
	}

	if parseErr != nil {
		return fmt.Errorf("%d of %d reports could not be parsed", len(unwrapJoined(parseErr)), len(paths))
	}
	if failOn != "" {
		for _, i := range issues.All() {
			if issue.ComparePriority(i.Priority(), failOn) >= 0 {
				return &exitError{code: 2, msg: fmt.Sprintf("found issues of priority %s or higher", failOn)}
			}
		}
	}
	return nil
}

// compileFilter combines --min-priority and --filter into one predicate.
func (o *parseOptions) compileFilter() (func(issue.Issue) bool, error) {
	var preds []func(issue.Issue) bool
	if o.minPriority != "" {
		p, err := issue.ParsePriority(o.minPriority)
		if err != nil {
			return nil, fmt.Errorf("invalid --min-priority: %w", err)
		}
		f := &issue.Filter{MinPriority: p}
		match, err := f.Compile()
		if err != nil {
			return nil, err
		}
		preds = append(preds, match)
	}
	if o.filter != "" {
		expr, err := issue.CompileExpression(o.filter)
		if err != nil {
			return nil, err
		}
		preds = append(preds, expr.Matches)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return func(i issue.Issue) bool {
		for _, p := range preds {
			if !p(i) {
				return false
			}
		}
		return true
	}, nil
}

// openOutput returns the file named by path, or the command's stdout.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
