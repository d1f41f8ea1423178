package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReservations(t *testing.T) {
	created := time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC)
	reservations := []*models.Reservation{
		{ReferenceNumber: "AAAAAAAAAA", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Guests: "2", Date: "2025-02-14", Time: "19:00", Status: models.StatusConfirmed, CreatedAt: created},
		{ReferenceNumber: "BBBBBBBBBB", FirstName: "Bo", Email: "bo@example.com", Guests: "6", Date: "2025-02-15", Time: "20:00", Status: models.StatusPending, CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReservations(&buf, reservations))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Reference", rows[0][0])
	assert.Equal(t, "AAAAAAAAAA", rows[1][0])
	assert.Equal(t, "Confirmed", rows[1][8])
	assert.Equal(t, "Pending", rows[2][8])
	assert.Equal(t, "2025-02-01 18:00", rows[1][9])

	styleID, err := f.GetCellStyle(SheetName, "I2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), "4CAF50")
}

func TestWriteReservations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReservations(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
