package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/export"
	"github.com/JonMunkholm/csvstandard/internal/schema"
)

type standardizeOptions struct {
	template string
	outDir   string
	format   string
	jobs     int
}

func newStandardizeCmd(root *rootOptions) *cobra.Command {
	opts := &standardizeOptions{}

	cmd := &cobra.Command{
		Use:   "standardize [files...]",
		Short: "Standardize CSV files into canonical output",
		Long: "Auto-maps, validates and transforms each CSV file independently and writes " +
			"<name>-standardized.<format> into the output directory. Files with invalid rows " +
			"produce no output and make the command exit non-zero.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStandardize(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Path to template file, JSON or YAML (required)")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for standardized files (required)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "Output format: csv or parquet")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Maximum files processed at once")
	requireFlag(cmd, "template")
	requireFlag(cmd, "out-dir")
	return cmd
}

// fileResult is the outcome for one input file.
type fileResult struct {
	input  string
	output string
	rows   int
	err    error
}

func runStandardize(cmd *cobra.Command, root *rootOptions, opts *standardizeOptions, files []string) error {
	log := root.logger(cmd)

	format := strings.ToLower(opts.format)
	if format != "csv" && format != "parquet" {
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", opts.jobs)
	}

	if err := checkOutputNames(files, format); err != nil {
		return err
	}

	tmpl, err := schema.LoadFile(opts.template)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	results := make([]fileResult, len(files))

	// A failing file does not stop the others; errors are kept per file.
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.jobs)
	for i, path := range files {
		g.Go(func() error {
			results[i] = standardizeFile(ctx, log, tmpl, path, opts.outDir, format, root.charset)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var failed []error
	for _, res := range results {
		if res.err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", res.input, res.err))
			fmt.Fprintf(w, "FAIL %s: %v\n", res.input, res.err)
			continue
		}
		fmt.Fprintf(w, "ok   %s -> %s (%d rows)\n", res.input, res.output, res.rows)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(files), errors.Join(failed...))
	}
	return nil
}

// standardizeFile runs one file through parse, auto-map, validate and
// transform, then writes the output file.
func standardizeFile(ctx context.Context, log *slog.Logger, tmpl *core.Template, path, outDir, format, charset string) fileResult {
	res := fileResult{input: path}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	parsed, err := readCSV(path, charset)
	if err != nil {
		res.err = err
		return res
	}
	mappings, err := resolveMappings("", parsed, tmpl.Fields)
	if err != nil {
		res.err = err
		return res
	}
	if errs := core.Validate(parsed.Data, tmpl.Fields, mappings); len(errs) > 0 {
		res.err = fmt.Errorf("%w: %d errors, first at row %d: %s", core.ErrValidationFailed, len(errs), errs[0].Row, errs[0].Message)
		return res
	}

	rows := core.Transform(parsed.Data, tmpl.Fields, mappings)
	res.output = filepath.Join(outDir, outputName(path, format))
	res.rows = len(rows)
	if err := writeOutput(res.output, format, tmpl.Fields, rows); err != nil {
		res.err = err
		return res
	}

	log.Info("file standardized", "file", path, "output", res.output, "rows", len(rows), "mapped", len(mappings))
	return res
}

// outputName is the input's base name with "-standardized.<format>".
func outputName(path, format string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "-standardized." + format
}

// checkOutputNames fails when two inputs would write the same output file.
func checkOutputNames(files []string, format string) error {
	seen := make(map[string]string, len(files))
	for _, path := range files {
		name := outputName(path, format)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s would both write %s", prev, path, name)
		}
		seen[name] = path
	}
	return nil
}

func writeOutput(path, format string, fields []core.TemplateField, rows []core.CanonicalRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	return encodeRows(f, format, fields, rows)
}

func encodeRows(w io.Writer, format string, fields []core.TemplateField, rows []core.CanonicalRow) error {
	if format == "parquet" {
		headers, values := core.Project(rows, fields)
		return export.WriteParquet(w, headers, values)
	}
	return core.Serialize(w, rows, core.Header(fields))
}
