package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/events"
	"fundledger/internal/logger"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
	"fundledger/internal/reporting"
)

// reportService persists monthly reports and drives their lifecycle.
type reportService struct {
	db        *gorm.DB
	budgets   BudgetServicer
	publisher events.Publisher
	now       func() time.Time
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, budgets BudgetServicer, publisher events.Publisher) ReportServicer {
	return &reportService{db: db, budgets: budgets, publisher: publisher, now: time.Now}
}

// ListReports returns reports, newest period first.
func (s *reportService) ListReports(page pagination.PageRequest, filter ReportFilter) (*pagination.PageResponse[models.Report], error) {
	page.Defaults()

	base := s.db.Model(&models.Report{})
	if filter.Year != nil {
		base = base.Where("year = ?", *filter.Year)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.Report
	if err := base.Scopes(pagination.Paginate(page)).
		Order("year DESC").
		Order("month DESC").
		Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetReport returns a report by ID.
func (s *reportService) GetReport(id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

func (s *reportService) findByPeriod(year, month int) (*models.Report, error) {
	var report models.Report
	err := s.db.Where("year = ? AND month = ?", year, month).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

// SaveReport autosaves the report of (year, month), creating the draft on
// the first save. The boolean result is true when a report was created.
func (s *reportService) SaveReport(ctx context.Context, actor string, year, month int, edit reporting.Edit) (*models.Report, bool, error) {
	if err := checkPeriod(year, time.Month(month)); err != nil {
		return nil, false, err
	}

	report, err := s.findByPeriod(year, month)
	if err != nil {
		return nil, false, err
	}
	created := report == nil
	if created {
		report = reporting.New(year, month, actor)
	}
	if report.IsFinal() {
		return nil, false, apperrors.ErrReportFinalized
	}

	live, err := s.budgets.GetMonth(ctx, year, time.Month(month))
	if err != nil {
		return nil, false, err
	}
	if err := reporting.Autosave(report, edit, *live); err != nil {
		return nil, false, err
	}

	if err := s.db.Save(report).Error; err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return report, created, nil
}

// UpdateReport autosaves an existing draft.
func (s *reportService) UpdateReport(ctx context.Context, id string, edit reporting.Edit) (*models.Report, error) {
	report, err := s.GetReport(id)
	if err != nil {
		return nil, err
	}
	if report.IsFinal() {
		return nil, apperrors.ErrReportFinalized
	}

	live, err := s.budgets.GetMonth(ctx, report.Year, time.Month(report.Month))
	if err != nil {
		return nil, err
	}
	if err := reporting.Autosave(report, edit, *live); err != nil {
		return nil, err
	}

	if err := s.db.Save(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return report, nil
}

// FinalizeReport freezes a draft once every flagged row is explained.
func (s *reportService) FinalizeReport(ctx context.Context, actor, id string) (*models.Report, error) {
	report, err := s.GetReport(id)
	if err != nil {
		return nil, err
	}
	if report.IsFinal() {
		return nil, apperrors.ErrReportFinalized
	}

	live, err := s.budgets.GetMonth(ctx, report.Year, time.Month(report.Month))
	if err != nil {
		return nil, err
	}
	if err := reporting.Finalize(report, *live, s.now()); err != nil {
		return nil, err
	}

	if err := s.db.Save(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(events.ReportFinalized, actor, report)
	return report, nil
}

// ReopenReport returns a final report to draft.
func (s *reportService) ReopenReport(actor, id string) (*models.Report, error) {
	report, err := s.GetReport(id)
	if err != nil {
		return nil, err
	}
	if err := reporting.Reopen(report); err != nil {
		return nil, err
	}

	if err := s.db.Save(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(events.ReportReopened, actor, report)
	return report, nil
}

// GenerateReport returns the live figures a report for (year, month) would
// be built from, together with the stored report if one exists.
func (s *reportService) GenerateReport(ctx context.Context, year, month int) (*GeneratedReport, error) {
	if err := checkPeriod(year, time.Month(month)); err != nil {
		return nil, err
	}

	live, err := s.budgets.GetMonth(ctx, year, time.Month(month))
	if err != nil {
		return nil, err
	}
	ytd, err := s.budgets.GetYearToDate(ctx, year, time.Month(month))
	if err != nil {
		return nil, err
	}
	report, err := s.findByPeriod(year, month)
	if err != nil {
		return nil, err
	}

	generated := &GeneratedReport{
		Year:      year,
		Month:     month,
		Aggregate: *live,
		YTD:       *ytd,
		Flagged:   live.Flagged(),
		Report:    report,
	}
	check := report
	if check == nil {
		check = reporting.New(year, month, "")
	}
	generated.Missing = reporting.Missing(check, *live)
	return generated, nil
}

func (s *reportService) publish(eventType, actor string, report *models.Report) {
	data := map[string]interface{}{
		"report_id": report.ID,
		"year":      report.Year,
		"month":     report.Month,
		"status":    report.Status,
	}
	if err := s.publisher.Publish(events.New(eventType, actor, data)); err != nil {
		logger.Get().Warnw("failed to publish event", "type", eventType, "report_id", report.ID, "error", err)
	}
}
