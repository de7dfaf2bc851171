// Package sheets appends standardized rows to Google Sheets using tokens
// supplied by the caller.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

// Scopes requested when the OAuth flow is run outside this module.
var Scopes = []string{
	gsheets.SpreadsheetsScope,
	drive.DriveFileScope,
}

const (
	valueInputOption = "USER_ENTERED"
	spreadsheetMime  = "application/vnd.google-apps.spreadsheet"
	listPageSize     = 50
)

// Client talks to the Sheets and Drive APIs on behalf of one token holder
// per call. It holds no tokens itself.
type Client struct {
	oauth      *oauth2.Config
	clientOpts []option.ClientOption
}

var _ core.SheetSink = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithOAuthApp enables refresh of expired access tokens using the app's
// OAuth client ID and secret.
func WithOAuthApp(clientID, clientSecret string) Option {
	return func(c *Client) {
		if clientID == "" {
			return
		}
		c.oauth = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		}
	}
}

// WithEndpoint points both APIs at a different base URL.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.clientOpts = append(c.clientOpts, option.WithEndpoint(url))
		}
	}
}

// WithClientOptions appends raw client options, e.g. option.WithHTTPClient.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spreadsheet is a spreadsheet visible to the token holder.
type Spreadsheet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Append writes rows below existing data. The header row is written first
// when row 1 of the sheet is empty. Not idempotent: two calls append twice.
func (c *Client) Append(ctx context.Context, req core.AppendRequest) (core.AppendResult, error) {
	srv, err := c.sheetsService(ctx, req.Credentials)
	if err != nil {
		return core.AppendResult{}, err
	}

	sheet := req.SheetName
	if sheet == "" {
		sheet = core.DefaultSheetName
	}

	existing, err := srv.Spreadsheets.Values.Get(req.SpreadsheetID, sheet+"!A1:1").Context(ctx).Do()
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("sheets api: read header row: %w", err)
	}

	values := make([][]interface{}, 0, len(req.Rows)+1)
	if len(existing.Values) == 0 {
		values = append(values, toCells(req.Headers))
	}
	for _, row := range req.Rows {
		values = append(values, toCells(row))
	}

	_, err = srv.Spreadsheets.Values.Append(req.SpreadsheetID, sheet+"!A1", &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("sheets api: append: %w", err)
	}

	slog.Debug("sheet append complete",
		"spreadsheet_id", req.SpreadsheetID,
		"sheet", sheet,
		"header_written", len(existing.Values) == 0,
		"rows", len(req.Rows),
	)
	return core.AppendResult{RowsAdded: len(req.Rows)}, nil
}

// SheetNames lists the tab titles of a spreadsheet. A spreadsheet reporting
// no tabs yields the default sheet name.
func (c *Client) SheetNames(ctx context.Context, creds core.SheetCredentials, spreadsheetID string) ([]string, error) {
	srv, err := c.sheetsService(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets api: get spreadsheet: %w", err)
	}
	if len(resp.Sheets) == 0 {
		return []string{core.DefaultSheetName}, nil
	}

	names := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		title := core.DefaultSheetName
		if s.Properties != nil && s.Properties.Title != "" {
			title = s.Properties.Title
		}
		names = append(names, title)
	}
	return names, nil
}

// CreateSpreadsheet creates a new spreadsheet with the given title.
func (c *Client) CreateSpreadsheet(ctx context.Context, creds core.SheetCredentials, title string) (Spreadsheet, error) {
	srv, err := c.sheetsService(ctx, creds)
	if err != nil {
		return Spreadsheet{}, err
	}

	resp, err := srv.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return Spreadsheet{}, fmt.Errorf("sheets api: create spreadsheet: %w", err)
	}

	name := title
	if resp.Properties != nil && resp.Properties.Title != "" {
		name = resp.Properties.Title
	}
	return Spreadsheet{ID: resp.SpreadsheetId, Name: name}, nil
}

// ListSpreadsheets returns up to 50 spreadsheets visible to the token holder.
func (c *Client) ListSpreadsheets(ctx context.Context, creds core.SheetCredentials) ([]Spreadsheet, error) {
	srv, err := drive.NewService(ctx, c.options(ctx, creds)...)
	if err != nil {
		return nil, fmt.Errorf("sheets api: drive client: %w", err)
	}

	resp, err := srv.Files.List().
		Q("mimeType='" + spreadsheetMime + "'").
		Fields("files(id, name)").
		PageSize(listPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets api: list spreadsheets: %w", err)
	}

	out := make([]Spreadsheet, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, Spreadsheet{ID: f.Id, Name: f.Name})
	}
	return out, nil
}

func (c *Client) sheetsService(ctx context.Context, creds core.SheetCredentials) (*gsheets.Service, error) {
	srv, err := gsheets.NewService(ctx, c.options(ctx, creds)...)
	if err != nil {
		return nil, fmt.Errorf("sheets api: client: %w", err)
	}
	return srv, nil
}

// options puts the token source first so explicit client options such as
// option.WithHTTPClient take precedence.
func (c *Client) options(ctx context.Context, creds core.SheetCredentials) []option.ClientOption {
	opts := make([]option.ClientOption, 0, len(c.clientOpts)+1)
	opts = append(opts, option.WithTokenSource(c.tokenSource(ctx, creds)))
	return append(opts, c.clientOpts...)
}

func (c *Client) tokenSource(ctx context.Context, creds core.SheetCredentials) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.oauth != nil && creds.RefreshToken != "" {
		return c.oauth.TokenSource(ctx, tok)
	}
	return oauth2.StaticTokenSource(tok)
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
