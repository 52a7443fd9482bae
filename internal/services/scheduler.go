package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/robfig/cron/v3"
)

const archiveTimeout = 2 * time.Minute

// ExportScheduler writes the full visitor export on a cron schedule.
type ExportScheduler struct {
	cron     *cron.Cron
	reports  *ReportGenerator
	dir      string
	archiver Archiver
	clock    Clock
	loc      *time.Location
}

// NewExportScheduler registers the daily export. archiver may be nil.
func NewExportScheduler(reports *ReportGenerator, dir, spec string, loc *time.Location, archiver Archiver, clock Clock) (*ExportScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = RealClock{}
	}
	s := &ExportScheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reports:  reports,
		dir:      dir,
		archiver: archiver,
		clock:    clock,
		loc:      loc,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("invalid EXPORT_SCHEDULE %q", spec), err)
	}
	return s, nil
}

func (s *ExportScheduler) Start() {
	s.cron.Start()
	slog.Info("✅ Export scheduler started", "dir", s.dir, "next_run", s.cron.Entries()[0].Next)
}

// Stop halts the schedule and waits for a running export to finish.
func (s *ExportScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Path is where the scheduled export is written.
func (s *ExportScheduler) Path() string {
	return filepath.Join(s.dir, ReportFileName)
}

func (s *ExportScheduler) run() {
	if err := s.RunOnce(context.Background()); err != nil {
		slog.Error("scheduled export failed", "error", err)
	}
}

// RunOnce writes the export now and archives it when an archiver is configured.
func (s *ExportScheduler) RunOnce(ctx context.Context) error {
	path := s.Path()
	if err := s.reports.WriteAll(ctx, path); err != nil {
		return err
	}
	slog.Info("visitor export written", "path", path)

	if s.archiver == nil {
		return nil
	}
	key := ArchiveKey(s.clock.Now().In(s.loc))
	actx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if err := s.archiver.Archive(actx, path, key); err != nil {
		return fmt.Errorf("failed to archive export: %w", err)
	}
	slog.Info("visitor export archived", "key", key)
	return nil
}

// ArchiveKey is the object key of the export taken on day t.
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("exports/visitors-%s.xlsx", t.Format(dateLayout))
}
