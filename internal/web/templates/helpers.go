package templates

import "github.com/JonMunkholm/csvstandard/internal/core"

func requiredLabel(required bool) string {
	if required {
		return "Yes"
	}
	return "No"
}

// destinationName returns a label for a connected sheet, or "" if none.
func destinationName(d *core.SheetConnection) string {
	if d == nil || d.SpreadsheetID == "" {
		return ""
	}
	name := d.SpreadsheetName
	if name == "" {
		name = d.SpreadsheetID
	}
	if d.SheetName != "" {
		name += " / " + d.SheetName
	}
	return name
}
