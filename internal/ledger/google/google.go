// Package google mirrors ledger rows into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dividi/internal/core"
	"dividi/internal/ledger"
)

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	expensesSheet    string
	settlementsSheet string
}

// Ensure interface conformance
var (
	_ ledger.ExpenseMirror    = (*Client)(nil)
	_ ledger.SettlementMirror = (*Client)(nil)
)

// NewFromEnv creates a Sheets mirror using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_EXPENSES_SHEET_NAME (default "Expenses"),
// GOOGLE_SETTLEMENTS_SHEET_NAME (default "Settlements").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	expenses := strings.TrimSpace(os.Getenv("GOOGLE_EXPENSES_SHEET_NAME"))
	if expenses == "" {
		expenses = "Expenses"
	}
	settlements := strings.TrimSpace(os.Getenv("GOOGLE_SETTLEMENTS_SHEET_NAME"))
	if settlements == "" {
		settlements = "Settlements"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		expensesSheet:    expenses,
		settlementsSheet: settlements,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from the environment.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("no Google credentials configured")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendExpense writes one expense row:
// date, group, title, payer participant id, amount, currency, split type.
func (c *Client) AppendExpense(ctx context.Context, group core.Group, e core.SplitExpense) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		e.Date,
		group.Name,
		e.Title,
		e.PayerParticipantID,
		e.Amount.String(),
		e.Currency,
		string(e.SplitType),
	}}}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.expensesSheet+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append expense to sheet %s: %w", c.expensesSheet, err)
	}
	return rowRef(resp), nil
}

// AppendSettlement writes one settlement row:
// timestamp, share id, participant id, amount, method, note.
func (c *Client) AppendSettlement(ctx context.Context, s core.Settlement, sh core.Share) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		s.CreatedAt.Format("2006-01-02 15:04:05"),
		s.ShareID,
		sh.ParticipantID,
		s.Amount.String(),
		s.Method,
		s.Note,
	}}}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.settlementsSheet+"!A:F", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append settlement to sheet %s: %w", c.settlementsSheet, err)
	}
	return rowRef(resp), nil
}

func rowRef(resp *gsheet.AppendValuesResponse) string {
	if resp != nil && resp.Updates != nil {
		return resp.Updates.UpdatedRange
	}
	return ""
}
