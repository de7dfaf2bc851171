package schema

import (
	"crypto/rand"
	"html"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

const (
	maxSlugBase   = 50
	slugSuffixLen = 6
	slugAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	plainText = bluemonday.StrictPolicy()
)

// Normalize fills derived values and strips markup from free text.
// Existing IDs, names and slugs are kept.
func Normalize(t *core.Template) {
	t.Name = Sanitize(t.Name)
	t.Description = strings.TrimSpace(t.Description)

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}

	for i := range t.Fields {
		f := &t.Fields[i]
		f.DisplayName = Sanitize(f.DisplayName)
		f.Name = strings.TrimSpace(f.Name)
		f.Description = Sanitize(f.Description)
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Name == "" {
			f.Name = MachineName(f.DisplayName)
		}
	}

	if d := t.Destination; d != nil {
		if d.Provider == "" {
			d.Provider = core.ProviderGoogleSheets
		}
		d.SpreadsheetID = strings.TrimSpace(d.SpreadsheetID)
		d.SheetName = strings.TrimSpace(d.SheetName)
	}
}

// Sanitize removes HTML markup and surrounding whitespace from a label.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// MachineName derives a snake_case column key from a display name.
func MachineName(displayName string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(displayName), "_")
	return strings.Trim(s, "_")
}

// Slugify turns a template name into a URL slug with a random suffix,
// e.g. "Customer List" -> "customer-list-k3x9qa".
func Slugify(name string) string {
	base := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	base = strings.Trim(base, "-")
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		return randomSuffix()
	}
	return base + "-" + randomSuffix()
}

func randomSuffix() string {
	var sb strings.Builder
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := 0; i < slugSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		sb.WriteByte(slugAlphabet[n.Int64()])
	}
	return sb.String()
}
