package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, f *excelize.File) [][]string {
	t.Helper()
	defer f.Close()
	assert.Equal(t, []string{ReportSheet}, f.GetSheetList())
	rows, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	return rows
}

func seedReportVisitors(t *testing.T, f *lifecycleFixture) {
	t.Helper()
	ctx := context.Background()

	f.clock.Set(time.Date(2024, 1, 15, 10, 30, 0, 0, testutil.Kolkata()))
	asha := f.create(t, "Asha")
	_, err := f.engine.SetStatus(ctx, asha.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)
	f.clock.Set(time.Date(2024, 1, 15, 14, 5, 9, 0, testutil.Kolkata()))
	_, err = f.engine.MarkCheckout(ctx, asha.ID.Hex())
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 1, 20, 9, 0, 0, 0, testutil.Kolkata()))
	form := validForm("Ravi")
	form.Company = "Acme"
	_, err = f.engine.CreateVisitor(ctx, form)
	require.NoError(t, err)
}

func TestWriteRangeWorkbook(t *testing.T) {
	f := newLifecycleFixture(t)
	seedReportVisitors(t, f)
	gen := NewReportGenerator(f.engine, testutil.Kolkata(), time.Second)

	var buf bytes.Buffer
	name, err := gen.WriteRange(context.Background(), &buf, "2024-01-15", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "visitors-2024-01-15-to-2024-01-15.xlsx", name)

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows := readRows(t, wb)

	require.Len(t, rows, 2)
	assert.Equal(t, ReportColumns, rows[0])
	assert.Equal(t, []string{
		"Asha",
		"9876543210",
		models.CompanyNotProvided,
		"Priya",
		"Interview",
		"approved",
		"15/1/2024, 10:30:00 am",
		"15/1/2024, 2:05:09 pm",
		"https://res.cloudinary.com/demo/visitors/Asha.jpg",
	}, rows[1])
}

func TestWriteRangeEmptyRangeHasHeaderOnly(t *testing.T) {
	f := newLifecycleFixture(t)
	seedReportVisitors(t, f)
	gen := NewReportGenerator(f.engine, testutil.Kolkata(), time.Second)

	var buf bytes.Buffer
	_, err := gen.WriteRange(context.Background(), &buf, "2023-01-01", "2023-12-31")
	require.NoError(t, err)

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows := readRows(t, wb)
	require.Len(t, rows, 1)
	assert.Equal(t, ReportColumns, rows[0])
}

func TestWriteRangeValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	gen := NewReportGenerator(f.engine, testutil.Kolkata(), time.Second)

	cases := [][2]string{
		{"", "2024-01-31"},
		{"2024-01-01", ""},
		{"yesterday", "2024-01-31"},
		{"2024-02-01", "2024-01-01"},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		_, err := gen.WriteRange(context.Background(), &buf, c[0], c[1])
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "%v", c)
		assert.Zero(t, buf.Len(), "%v", c)
	}
}

func TestWriteAllReplacesFile(t *testing.T) {
	f := newLifecycleFixture(t)
	seedReportVisitors(t, f)
	gen := NewReportGenerator(f.engine, testutil.Kolkata(), time.Second)

	dir := t.TempDir()
	path := filepath.Join(dir, ReportFileName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, gen.WriteAll(context.Background(), path))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows := readRows(t, wb)
	require.Len(t, rows, 3)
	assert.Equal(t, "Asha", rows[1][0])
	assert.Equal(t, "Ravi", rows[2][0])
	assert.Equal(t, "Acme", rows[2][2])
	assert.Equal(t, NotCheckedOut, rows[2][7])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestParseDateRangeRFC3339(t *testing.T) {
	start, end, err := ParseDateRange("2024-01-15T00:00:00Z", "2024-01-15T12:00:00+05:30", testutil.Kolkata())
	require.NoError(t, err)
	assert.True(t, start.Before(end))

	_, end, err = ParseDateRange("2024-01-15", "2024-01-15", testutil.Kolkata())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 23, 59, 59, 999999999, testutil.Kolkata()).UnixNano(), end.UnixNano())
}
