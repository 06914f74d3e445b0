package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/models"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/export"
)

var requestExportHeaders = []string{"Date", "Start", "End", "Organization", "Class", "Requested By", "Substitute", "Status", "Reason"}

type requestExportLister interface {
	ListForExport(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequestExport, error)
}

// ExportResult is a rendered report.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders substitute request reports.
type ExportService struct {
	requests  requestExportLister
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. CSV and PDF renderers are
// registered when none are given.
func NewExportService(requests requestExportLister, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter()}
	}
	byFormat := make(map[string]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Extension()] = r
	}
	return &ExportService{requests: requests, renderers: byFormat, logger: logger, now: time.Now}
}

// ExportRequests renders the requests matching filter in format (csv or pdf).
func (s *ExportService) ExportRequests(ctx context.Context, format string, filter models.SubstituteRequestFilter) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	rows, err := s.requests.ListForExport(ctx, filter)
	if err != nil {
		return nil, storeError(err, "", "failed to load substitute requests for export")
	}

	dataset := export.Dataset{
		Title:   "Substitute Requests",
		Headers: requestExportHeaders,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, r := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":         r.DateNeeded,
			"Start":        r.StartTime,
			"End":          r.EndTime,
			"Organization": r.OrganizationName,
			"Class":        r.ClassName,
			"Requested By": r.RequesterName,
			"Substitute":   deref(r.SubstituteName),
			"Status":       string(r.Status),
			"Reason":       deref(r.Reason),
		})
	}

	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("substitute-requests-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension())
	s.logger.Info("substitute requests exported", zap.String("format", format), zap.Int("rows", len(rows)))
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Data: data, Rows: len(rows)}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
