package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	ReportSheet        = "Visitors"
	ReportFileName     = "visitors.xlsx"
	NotCheckedOut      = "Not checked out"
	reportTimeLayout   = "2/1/2006, 3:04:05 pm"
	defaultExportLimit = 60 * time.Second
)

// ReportColumns is the column order of every export. Downstream spreadsheets depend on it.
var ReportColumns = []string{
	"Name",
	"Phone",
	"Company",
	"Person to Meet",
	"Purpose",
	"Status",
	"Check-in Time",
	"Check-out Time",
	"Photo URL",
}

// VisitorSource is the read side of the lifecycle engine used by exports.
type VisitorSource interface {
	ListAll(ctx context.Context, newestFirst bool) ([]models.Visitor, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Visitor, error)
}

// ReportGenerator renders visitor records as an Excel workbook.
type ReportGenerator struct {
	source  VisitorSource
	loc     *time.Location
	timeout time.Duration
}

func NewReportGenerator(source VisitorSource, loc *time.Location, timeout time.Duration) *ReportGenerator {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultExportLimit
	}
	return &ReportGenerator{source: source, loc: loc, timeout: timeout}
}

// WriteAll exports every visitor to path, replacing any previous file atomically.
func (g *ReportGenerator) WriteAll(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	visitors, err := g.source.ListAll(ctx, false)
	if err != nil {
		return err
	}
	f, err := g.workbook(visitors)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".visitors-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to publish export: %w", err)
	}
	return nil
}

// WriteRange writes visitors created within the given bounds to w and returns
// the download filename. Nothing is written unless the workbook is complete.
func (g *ReportGenerator) WriteRange(ctx context.Context, w io.Writer, startRaw, endRaw string) (string, error) {
	start, end, err := ParseDateRange(startRaw, endRaw, g.loc)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	visitors, err := g.source.ListByDateRange(ctx, start, end)
	if err != nil {
		return "", err
	}
	f, err := g.workbook(visitors)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return RangeFileName(start.In(g.loc), end.In(g.loc)), nil
}

// RangeFileName names an on-demand export, e.g. visitors-2024-01-01-to-2024-01-31.xlsx.
func RangeFileName(start, end time.Time) string {
	return fmt.Sprintf("visitors-%s-to-%s.xlsx", start.Format(dateLayout), end.Format(dateLayout))
}

func (g *ReportGenerator) workbook(visitors []models.Visitor) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ReportSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := make([]interface{}, len(ReportColumns))
	for i, c := range ReportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(ReportSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, v := range visitors {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := g.row(v)
		if err := f.SetSheetRow(ReportSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := f.SetColWidth(ReportSheet, "A", "I", 22); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (g *ReportGenerator) row(v models.Visitor) []interface{} {
	company := v.Company
	if company == "" {
		company = models.CompanyNotProvided
	}
	checkout := NotCheckedOut
	if v.CheckoutTime != nil {
		checkout = g.formatTime(*v.CheckoutTime)
	}
	return []interface{}{
		v.Name,
		v.Phone,
		company,
		v.PersonToMeet,
		v.Purpose,
		string(v.Status),
		g.formatTime(v.CreatedAt),
		checkout,
		v.PhotoURL,
	}
}

func (g *ReportGenerator) formatTime(t time.Time) string {
	return t.In(g.loc).Format(reportTimeLayout)
}
