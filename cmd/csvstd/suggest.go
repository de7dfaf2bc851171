package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/schema"
)

type suggestOptions struct {
	template string
	input    string
	output   string
}

func newSuggestCmd(root *rootOptions) *cobra.Command {
	opts := &suggestOptions{}

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a column mapping for a CSV file",
		Long: "Reads the header of a CSV file and prints the suggested mapping of its columns " +
			"onto the template's fields as JSON. The output can be edited and passed to validate --mapping.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuggest(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Path to template file, JSON or YAML (required)")
	cmd.Flags().StringVarP(&opts.input, "in", "i", "", "Path to CSV file (required)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Write the mapping to this file instead of stdout")
	requireFlag(cmd, "template")
	requireFlag(cmd, "in")
	return cmd
}

func runSuggest(cmd *cobra.Command, root *rootOptions, opts *suggestOptions) error {
	log := root.logger(cmd)

	tmpl, err := schema.LoadFile(opts.template)
	if err != nil {
		return err
	}
	parsed, err := readCSV(opts.input, root.charset)
	if err != nil {
		return err
	}

	suggested := core.Suggest(parsed.Headers, tmpl.Fields)
	for _, f := range core.UnmappedRequired(tmpl.Fields, suggested) {
		log.Warn("required field has no suggested column", "field", f.Name)
	}
	log.Info("mapping suggested",
		"template", tmpl.Slug,
		"columns", len(parsed.Headers),
		"mapped", len(suggested),
		"fields", len(tmpl.Fields),
	)

	out := byName(suggested, tmpl.Fields)
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	data = append(data, '\n')

	if opts.output != "" {
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return fmt.Errorf("write mapping: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
