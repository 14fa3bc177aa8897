package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"household/internal/core"
	ports "household/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client opens Google Sheets spreadsheets as importable workbooks. The
// reference passed to Open is the spreadsheet ID.
type Client struct {
	svc *gsheet.Service
}

// Ensure interface conformance
var _ ports.WorkbookOpener = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service) *Client {
	return &Client{svc: svc}
}

// NewFromEnv creates a Sheets client using service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc), nil
}

// newSheetsService initializes a read-only Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Open fetches the worksheet list of a spreadsheet. An unknown spreadsheet ID
// yields a *core.FileNotFoundError so the importer treats it like a missing file.
func (c *Client) Open(ctx context.Context, spreadsheetID string) (ports.Workbook, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, &core.FileNotFoundError{Path: spreadsheetID}
	}

	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return nil, &core.FileNotFoundError{Path: spreadsheetID}
		}
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}

	names := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			names = append(names, s.Properties.Title)
		}
	}
	return &workbook{c: c, id: spreadsheetID, names: names}, nil
}

type workbook struct {
	c     *Client
	id    string
	names []string
}

func (w *workbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

// Sheet reads a whole worksheet with unformatted values; dates come back as
// serial numbers, which core.ParseDate understands.
func (w *workbook) Sheet(ctx context.Context, name string) (ports.Sheet, error) {
	if indexOf(w.names, name) == -1 {
		return ports.Sheet{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, name)
	}

	resp, err := w.c.svc.Spreadsheets.Values.Get(w.id, quoteSheet(name)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return ports.Sheet{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return ports.FromMatrix(name, toMatrix(resp.Values)), nil
}

func (w *workbook) Close() error { return nil }

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
