package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/schema"
)

type validateOptions struct {
	template string
	input    string
	mapping  string
	jsonOut  bool
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a CSV file against a template",
		Long: "Checks every row of a CSV file against the template's field types and required flags. " +
			"Columns are auto-mapped unless --mapping is given. Exits non-zero when any row is invalid.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Path to template file, JSON or YAML (required)")
	cmd.Flags().StringVarP(&opts.input, "in", "i", "", "Path to CSV file (required)")
	cmd.Flags().StringVarP(&opts.mapping, "mapping", "m", "", "Path to a JSON mapping file from suggest")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print errors as JSON")
	requireFlag(cmd, "template")
	requireFlag(cmd, "in")
	return cmd
}

func runValidate(cmd *cobra.Command, root *rootOptions, opts *validateOptions) error {
	log := root.logger(cmd)

	tmpl, err := schema.LoadFile(opts.template)
	if err != nil {
		return err
	}
	parsed, err := readCSV(opts.input, root.charset)
	if err != nil {
		return err
	}
	mappings, err := resolveMappings(opts.mapping, parsed, tmpl.Fields)
	if err != nil {
		return err
	}

	errs := core.Validate(parsed.Data, tmpl.Fields, mappings)
	log.Info("file validated", "file", opts.input, "rows", parsed.RowCount, "errors", len(errs))

	if err := printValidation(cmd, opts.jsonOut, parsed.RowCount, errs); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d errors in %s", core.ErrValidationFailed, len(errs), opts.input)
	}
	return nil
}

func printValidation(cmd *cobra.Command, asJSON bool, rows int, errs []core.ValidationError) error {
	w := cmd.OutOrStdout()

	if asJSON {
		if errs == nil {
			errs = []core.ValidationError{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(errs)
	}

	if len(errs) == 0 {
		_, err := fmt.Fprintf(w, "%d rows valid\n", rows)
		return err
	}
	for _, e := range errs {
		line := fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
		if e.Value != "" {
			line += fmt.Sprintf(" (%q)", e.Value)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
