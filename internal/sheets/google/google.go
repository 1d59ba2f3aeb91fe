// Package google mirrors ledger transactions to a Google Sheets
// spreadsheet. Credentials come from a service account, or from the OAuth
// client/token pair written by oauth-init for personal accounts.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	ports "finjoy/internal/sheets"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client writes transaction rows to a single sheet, keyed by transaction ID
// in column A. Columns: A=ID, B=Date, C=Description, D=Amount, E=Category,
// F=Type.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.TransactionWriter  = (*Client)(nil)
	_ ports.TransactionDeleter = (*Client)(nil)
)

// Settings selects the spreadsheet and the credential source. A service
// account wins when both are configured; the OAuth client/token pair saved
// by oauth-init is the fallback for personal accounts. Inline credentials
// via GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_OAUTH_CLIENT_JSON override the
// file paths.
type Settings struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

// New creates a Sheets client. The sheet name defaults to "Transactions"
// and is prefixed with the current year.
func New(ctx context.Context, settings Settings) (*Client, error) {
	if settings.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	base := settings.SheetName
	if base == "" {
		base = "Transactions"
	}

	credential, mode, err := credentialOption(ctx, settings)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, credential,
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "credentials", mode, "sheet", base)

	return &Client{
		svc:           svc,
		spreadsheetID: settings.SpreadsheetID,
		sheetName:     fmt.Sprintf("%d %s", time.Now().Year(), base),
	}, nil
}

// credentialOption resolves credentials in order: inline service-account
// JSON, a service-account file (GOOGLE_APPLICATION_CREDENTIALS as a last
// resort), then the oauth-init client/token pair.
func credentialOption(ctx context.Context, s Settings) (goption.ClientOption, string, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return goption.WithCredentialsJSON([]byte(inline)), "service_account", nil
	}

	file := s.ServiceAccountFile
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("read service account file: %w", err)
		}
		return goption.WithCredentialsJSON(raw), "service_account", nil
	}

	inlineClient := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	if inlineClient != "" || s.OAuthClientFile != "" {
		clientJSON := []byte(inlineClient)
		if inlineClient == "" {
			var err error
			clientJSON, err = os.ReadFile(s.OAuthClientFile)
			if err != nil {
				return nil, "", fmt.Errorf("read oauth client file: %w", err)
			}
		}
		ts, err := oauthTokenSource(ctx, clientJSON, s.OAuthTokenFile)
		if err != nil {
			return nil, "", err
		}
		return goption.WithTokenSource(ts), "oauth", nil
	}

	return nil, "", errors.New("missing credentials: set GOOGLE_SERVICE_ACCOUNT_FILE (or GOOGLE_SERVICE_ACCOUNT_JSON) or the GOOGLE_OAUTH_CLIENT_FILE/GOOGLE_OAUTH_TOKEN_FILE pair produced by oauth-init")
}

// oauthTokenSource builds a self-refreshing token source from the OAuth
// client secret and the token saved by oauth-init.
func oauthTokenSource(ctx context.Context, clientJSON []byte, tokenFile string) (oauth2.TokenSource, error) {
	cfg, err := googleauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	if tokenFile == "" {
		tokenFile = "token.json"
	}
	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token (run oauth-init first): %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token %s: %w", tokenFile, err)
	}
	return cfg.TokenSource(ctx, &token), nil
}

// Upsert writes the row. An existing row with the same transaction ID in
// column A is overwritten in place; otherwise the row is appended.
func (c *Client) Upsert(ctx context.Context, row ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowNum, err := c.findRow(ctx, row.TransactionID)
	if err != nil {
		return err
	}

	values := [][]any{{
		row.TransactionID,
		row.Date,
		row.Description,
		row.Amount,
		row.CategoryName,
		row.CategoryType,
	}}

	if rowNum > 0 {
		rng := fmt.Sprintf("%s!A%d:F%d", c.sheetName, rowNum, rowNum)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
			&gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in sheet %s: %w", rowNum, c.sheetName, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}

// Delete clears the row keyed by the transaction ID. Absent rows are a
// no-op.
func (c *Client) Delete(ctx context.Context, transactionID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowNum, err := c.findRow(ctx, transactionID)
	if err != nil {
		return err
	}
	if rowNum == 0 {
		slog.DebugContext(ctx, "No mirrored row to delete", "transaction_id", transactionID)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:F%d", c.sheetName, rowNum, rowNum)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %d in sheet %s: %w", rowNum, c.sheetName, err)
	}
	return nil
}

// findRow scans column A for the transaction ID and returns its 1-based row
// number, or 0 when absent.
func (c *Client) findRow(ctx context.Context, transactionID int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read column A of sheet %s: %w", c.sheetName, err)
	}

	want := strconv.FormatInt(transactionID, 10)
	for i, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}
