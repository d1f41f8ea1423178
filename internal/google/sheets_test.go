package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *ReservationSheet) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return mux, newReservationSheet(srv, "sheet_id", "Reservations")
}

func reservation() *models.Reservation {
	return &models.Reservation{
		ReferenceNumber: "REF0000001",
		FirstName:       "Ann",
		Status:          models.StatusPending,
		CreatedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReservationSheet_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"Reference"}}})
	})
	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestReservationSheet_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"Reference"}, {"REF0000001"}, {}, {"REF0000002"}},
		})
	})

	require.NoError(t, s.WarmUpCache(context.Background()))

	row, err := s.FindRow(context.Background(), "REF0000002")
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	_, err = s.FindRow(context.Background(), "Reference")
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestReservationSheet_UpsertAppendsNewRow(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"Reference"}}})
	})

	var appended sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &appended)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Reservations!A2:J2"},
		})
	})

	require.NoError(t, s.UpsertReservation(context.Background(), reservation()))
	require.Len(t, appended.Values, 1)
	assert.Equal(t, "REF0000001", appended.Values[0][0])

	row, ok := s.cachedRow("REF0000001")
	assert.True(t, ok)
	assert.Equal(t, 2, row)
}

func TestReservationSheet_UpsertUpdatesExistingRow(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("REF0000001", 5)

	called := false
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!A5:J5", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPut, r.Method)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpsertReservation(context.Background(), reservation()))
	assert.True(t, called)
}

func TestReservationSheet_UpdateStatus(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("REF0000001", 3)

	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/sheet_id/values/Reservations!I3", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpdateReservationStatus(context.Background(), "REF0000001", models.StatusConfirmed))
	require.Len(t, got.Values, 1)
	assert.Equal(t, "confirmed", got.Values[0][0])

	assert.Error(t, s.UpsertReservation(context.Background(), nil))
}

func TestTrimSheet(t *testing.T) {
	assert.Equal(t, "A2:J2", trimSheet("Reservations!A2:J2"))
	assert.Equal(t, "A2", trimSheet("A2"))
}
