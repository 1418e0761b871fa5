// Package google publishes tariff snapshots to Google Sheets.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tariffsync/internal/core"
	ports "tariffsync/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultWriteRange is where the snapshot grid is written. Writing from A1
// overwrites the previous day's snapshot in place.
const DefaultWriteRange = "Sheet1!A1"

type Client struct {
	svc        *gsheet.Service
	writeRange string
}

var _ ports.SnapshotPublisher = (*Client)(nil)

// NewFromEnv creates a Sheets client authenticated with a service account.
// Credentials are resolved from GOOGLE_SERVICE_ACCOUNT_JSON (inline JSON),
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS, in that
// order. GOOGLE_SHEETS_WRITE_RANGE overrides the destination range.
func NewFromEnv(ctx context.Context) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	writeRange := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_WRITE_RANGE"))
	if writeRange == "" {
		writeRange = DefaultWriteRange
	}

	return &Client{svc: svc, writeRange: writeRange}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Publish overwrites the destination region of the target spreadsheet with
// the given grid. USER_ENTERED input parsing matches what a user typing the
// values would get.
func (c *Client) Publish(ctx context.Context, target core.SpreadsheetTarget, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(target.ID) == "" {
		return errors.New("empty spreadsheet target id")
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(target.ID, c.writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update spreadsheet %s range %s: %w", target.ID, c.writeRange, err)
	}

	slog.InfoContext(ctx, "Spreadsheet updated",
		"target", target.ID,
		"rows", len(values))

	return nil
}
