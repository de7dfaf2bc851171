package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

// requireFlag marks a flag required, panicking on a misspelled name.
func requireFlag(cmd *cobra.Command, name string) {
	if err := cmd.MarkFlagRequired(name); err != nil {
		panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
	}
}

// readCSV parses a CSV file, converting it from charset first.
func readCSV(path, charset string) (*core.ParsedCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	decoded, err := core.DecodeCharset(f, charset)
	if err != nil {
		return nil, err
	}
	parsed, err := core.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(parsed.Headers) == 0 {
		return nil, fmt.Errorf("parse %s: %w", path, core.ErrEmptyFile)
	}
	return parsed, nil
}

// Mapping files written and read by the CLI name fields by their machine
// name, since field IDs are generated when a template file omits them.

// byName rewrites target field IDs as field names.
func byName(m core.Mappings, fields []core.TemplateField) core.Mappings {
	names := make(map[string]string, len(fields))
	for _, f := range fields {
		names[f.ID] = f.Name
	}

	out := make(core.Mappings, 0, len(m))
	for _, cm := range m {
		if name, ok := names[cm.TargetFieldID]; ok {
			cm.TargetFieldID = name
		}
		out = append(out, cm)
	}
	return out
}

// byID resolves target field names back to IDs. Targets that already are
// IDs pass through; unknown targets are left for CheckMappings to report.
func byID(m core.Mappings, fields []core.TemplateField) core.Mappings {
	ids := make(map[string]string, len(fields))
	for _, f := range fields {
		ids[f.Name] = f.ID
	}
	for _, f := range fields {
		ids[f.ID] = f.ID
	}

	out := make(core.Mappings, 0, len(m))
	for _, cm := range m {
		if id, ok := ids[cm.TargetFieldID]; ok {
			cm.TargetFieldID = id
		}
		out = append(out, cm)
	}
	return out
}

// readMappingFile loads a JSON mapping list as written by "csvstd suggest".
func readMappingFile(path string, fields []core.TemplateField) (core.Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var m core.Mappings
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", path, err)
	}
	return byID(m, fields), nil
}

// resolveMappings returns the mappings from path, or the suggested ones when
// path is empty, after checking them against the file and template.
func resolveMappings(path string, parsed *core.ParsedCSV, fields []core.TemplateField) (core.Mappings, error) {
	var (
		m   core.Mappings
		err error
	)
	if path != "" {
		m, err = readMappingFile(path, fields)
		if err != nil {
			return nil, err
		}
	} else {
		m = core.Suggest(parsed.Headers, fields)
	}

	if err := core.CheckMappings(parsed.Headers, fields, m); err != nil {
		return nil, err
	}
	if err := core.CheckRequiredMapped(fields, m); err != nil {
		return nil, err
	}
	return m, nil
}
