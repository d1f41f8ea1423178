package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound is returned when no row carries the reference number.
var ErrRowNotFound = errors.New("reservation row not found")

var header = []interface{}{"Reference", "First Name", "Last Name", "Email", "Phone", "Guests", "Date", "Time", "Status", "Created At"}

// ReservationSheet mirrors reservations into one tab of a spreadsheet, one
// row per reference number.
type ReservationSheet struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewReservationSheet(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*ReservationSheet, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newReservationSheet(srv, spreadsheetID, sheetName), nil
}

func newReservationSheet(srv *sheets.Service, spreadsheetID, sheetName string) *ReservationSheet {
	return &ReservationSheet{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[string]int),
	}
}

func (s *ReservationSheet) rng(a1 string) string {
	return s.sheetName + "!" + a1
}

// TestConnection reads the header cell.
func (s *ReservationSheet) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A1")).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the column titles to row 1.
func (s *ReservationSheet) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A1:J1"), &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// WarmUpCache rebuilds the reference → row index from column A.
func (s *ReservationSheet) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if ref, ok := row[0].(string); ok && ref != "" {
			cache[ref] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// FindRow returns the 1-based sheet row holding ref.
func (s *ReservationSheet) FindRow(ctx context.Context, ref string) (int, error) {
	if ref == "" {
		return 0, errors.New("reference number is required")
	}
	if row, ok := s.cachedRow(ref); ok {
		return row, nil
	}

	if err := s.WarmUpCache(ctx); err != nil {
		return 0, err
	}
	if row, ok := s.cachedRow(ref); ok {
		return row, nil
	}
	return 0, ErrRowNotFound
}

func (s *ReservationSheet) UpsertReservation(ctx context.Context, r *models.Reservation) error {
	if r == nil {
		return errors.New("reservation is nil")
	}

	rowIdx, err := s.FindRow(ctx, r.ReferenceNumber)
	if errors.Is(err, ErrRowNotFound) {
		return s.appendReservation(ctx, r)
	}
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng(fmt.Sprintf("A%d:J%d", rowIdx, rowIdx)), &sheets.ValueRange{
		Values: [][]interface{}{rowValues(r)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpdateReservationStatus rewrites the status cell only.
func (s *ReservationSheet) UpdateReservationStatus(ctx context.Context, ref string, status models.Status) error {
	rowIdx, err := s.FindRow(ctx, ref)
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng(fmt.Sprintf("I%d", rowIdx)), &sheets.ValueRange{
		Values: [][]interface{}{{string(status)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *ReservationSheet) appendReservation(ctx context.Context, r *models.Reservation) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rng("A:A"), &sheets.ValueRange{
		Values: [][]interface{}{rowValues(r)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}

	// cache the row the API reports, e.g. "Reservations!A7:J7"
	if resp.Updates != nil {
		var row int
		if _, scanErr := fmt.Sscanf(trimSheet(resp.Updates.UpdatedRange), "A%d", &row); scanErr == nil && row > 0 {
			s.setCachedRow(r.ReferenceNumber, row)
		}
	}
	return nil
}

func trimSheet(a1 string) string {
	for i := len(a1) - 1; i >= 0; i-- {
		if a1[i] == '!' {
			return a1[i+1:]
		}
	}
	return a1
}

func (s *ReservationSheet) cachedRow(ref string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[ref]
	return row, ok
}

func (s *ReservationSheet) setCachedRow(ref string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[ref] = row
}

func rowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ReferenceNumber,
		r.FirstName,
		r.LastName,
		r.Email,
		r.Phone,
		r.Guests,
		r.Date,
		r.Time,
		string(r.Status),
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
