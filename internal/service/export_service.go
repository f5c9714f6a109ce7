package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
	"github.com/campuskit/blocks-api/pkg/export"
	"github.com/campuskit/blocks-api/pkg/storage"
)

// ExportFormat enumerates the supported roster export formats.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"relative_path"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	FileTTL   time.Duration
}

// ExportService renders section rosters to CSV or PDF and serves them via
// signed, TTL-bounded download URLs.
type ExportService struct {
	sections sectionReader
	roster   sectionRosterRepository
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	audit    auditRecorder
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sections sectionReader, roster sectionRosterRepository, files fileStorage, signer *storage.SignedURLSigner, audit auditRecorder, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = 24 * time.Hour
	}
	return &ExportService{
		sections: sections,
		roster:   roster,
		storage:  files,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
	}
}

// ExportSectionRoster renders the ACTIVE roster of a section and stores the
// file, returning a signed download URL.
func (s *ExportService) ExportSectionRoster(ctx context.Context, sectionID string, format ExportFormat, actor models.Actor) (*ExportResult, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	entries, err := s.roster.ListActiveBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section roster")
	}

	dataset := rosterDataset(entries)
	title := fmt.Sprintf("Section %s roster", section.SectionCode)
	subtitle := fmt.Sprintf("%d students, generated %s", len(entries), time.Now().UTC().Format("2006-01-02 15:04 MST"))

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title, subtitle)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}

	filename := fmt.Sprintf("roster_%s_%s.%s",
		strings.ReplaceAll(section.SectionCode, "-", "_"),
		time.Now().UTC().Format("20060102T150405"),
		format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster export")
	}

	token, expiresAt, err := s.signer.Generate(sectionID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionRosterExport, "block_section", sectionID, map[string]interface{}{
			"format": format,
			"file":   relPath,
		})
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download?token=%s", s.cfg.APIPrefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Download re-validates the signed token and opens the stored file.
func (s *ExportService) Download(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, nil
}

// Cleanup removes stored exports older than the configured TTL.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.FileTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("export cleanup removed files", zap.Int("count", len(removed)))
	}
}

func rosterDataset(entries []models.RosterEntry) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"student_number", "last_name", "first_name", "program", "year_level", "assigned_at"},
	}
	for _, entry := range entries {
		detail := models.NewStudentDetail(entry.Student)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_number": detail.CanonicalNumber,
			"last_name":      entry.LastName,
			"first_name":     entry.FirstName,
			"program":        detail.ResolvedProgram.Abbreviation(),
			"year_level":     strconv.Itoa(entry.YearLevel),
			"assigned_at":    entry.AssignedAt.Format(time.RFC3339),
		})
	}
	return dataset
}
