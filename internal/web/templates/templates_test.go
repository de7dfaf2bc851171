package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestErrorAlert(t *testing.T) {
	t.Parallel()

	doc := render(t, ErrorAlert("File is too large", "Split it", "FILE001"))

	alert := doc.Find("div[role='alert']")
	require.Equal(t, 1, alert.Length())
	require.Equal(t, "FILE001", alert.AttrOr("data-code", ""))
	require.Equal(t, "File is too large", alert.Find(".alert-message").Text())
	require.Equal(t, "Split it", alert.Find(".alert-action").Text())
	require.Contains(t, alert.Find(".alert-code").Text(), "FILE001")
}

func TestErrorAlertEscapesAndOmitsEmptyAction(t *testing.T) {
	t.Parallel()

	doc := render(t, ErrorAlert("<script>x</script>", "", "E1"))

	require.Equal(t, 0, doc.Find("script").Length(), "message must be escaped")
	require.Equal(t, "<script>x</script>", doc.Find(".alert-message").Text())
	require.Equal(t, 0, doc.Find(".alert-action").Length())
}

func TestUploadPage(t *testing.T) {
	t.Parallel()

	tmpl := &core.Template{
		ID:   "tpl-1",
		Name: "Customers",
		Slug: "customers-ab12cd",
		Fields: []core.TemplateField{
			{ID: "f1", Name: "email", DisplayName: "Email", Type: core.FieldEmail, Required: true, Description: "Work address"},
			{ID: "f2", Name: "age", DisplayName: "Age", Type: core.FieldNumber},
		},
		Destination: &core.SheetConnection{SpreadsheetID: "sheet-1", SpreadsheetName: "CRM", SheetName: "Leads"},
	}

	doc := render(t, UploadPage(tmpl, "<p>Export from <strong>CRM</strong></p>"))

	require.Equal(t, "Customers", doc.Find("h1").Text())
	require.Equal(t, "tpl-1", doc.Find("main").AttrOr("data-template", ""))
	require.Equal(t, 1, doc.Find(".description strong").Length(), "description HTML is rendered raw")

	rows := doc.Find("tr[data-field]")
	require.Equal(t, 2, rows.Length())
	email := doc.Find("tr[data-field='email'] td")
	require.Contains(t, email.Eq(0).Text(), "Email")
	require.Equal(t, "Work address", email.Eq(0).Find("small").Text())
	require.Equal(t, "email", email.Eq(1).Text())
	require.Equal(t, "Yes", email.Eq(2).Text())
	require.Equal(t, "No", doc.Find("tr[data-field='age'] td").Eq(2).Text())

	require.Contains(t, doc.Find(".destination").Text(), "CRM / Leads")

	form := doc.Find("form")
	require.Equal(t, "/api/uploads/customers-ab12cd", form.AttrOr("hx-post", ""))
	require.Equal(t, 1, form.Find("input[type='file'][name='file']").Length())
	require.Equal(t, 3, form.Find("select[name='charset'] option").Length())
}

func TestUploadPageWithoutDescriptionOrDestination(t *testing.T) {
	t.Parallel()

	tmpl := &core.Template{ID: "t", Name: "Plain", Slug: "plain"}
	doc := render(t, UploadPage(tmpl, ""))

	require.Equal(t, 0, doc.Find(".description").Length())
	require.Equal(t, 0, doc.Find(".destination").Length())
	require.True(t, strings.HasSuffix(doc.Find("title").Text(), "Upload"))
}
