package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
)

// maxPeriodMonths is the longest a planning period may span.
const maxPeriodMonths = 12

// planningPeriodService manages fiscal planning periods.
type planningPeriodService struct {
	db *gorm.DB
}

// NewPlanningPeriodService creates a new PlanningPeriodServicer.
func NewPlanningPeriodService(db *gorm.DB) PlanningPeriodServicer {
	return &planningPeriodService{db: db}
}

// ListPeriods returns every planning period ordered by start month.
func (s *planningPeriodService) ListPeriods() ([]models.PlanningPeriod, error) {
	periods := []models.PlanningPeriod{}
	if err := s.db.Order("start_month ASC").Find(&periods).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return periods, nil
}

// GetPeriod returns a planning period by ID.
func (s *planningPeriodService) GetPeriod(id string) (*models.PlanningPeriod, error) {
	var period models.PlanningPeriod
	if err := s.db.Where("id = ?", id).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPlanningPeriodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &period, nil
}

// CreatePeriod validates and stores a new planning period.
func (s *planningPeriodService) CreatePeriod(input PlanningPeriodInput) (*models.PlanningPeriod, error) {
	if err := s.mustValidate(input, ""); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.PlanningPeriodOpen
	}
	period := &models.PlanningPeriod{
		Name:       strings.TrimSpace(input.Name),
		StartMonth: input.StartMonth,
		EndMonth:   input.EndMonth,
		Status:     status,
		Notes:      input.Notes,
	}
	if err := s.db.Create(period).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return period, nil
}

// UpdatePeriod replaces a planning period's fields after validation.
func (s *planningPeriodService) UpdatePeriod(id string, input PlanningPeriodInput) (*models.PlanningPeriod, error) {
	period, err := s.GetPeriod(id)
	if err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = period.Status
	}
	if err := s.mustValidate(input, id); err != nil {
		return nil, err
	}

	period.Name = strings.TrimSpace(input.Name)
	period.StartMonth = input.StartMonth
	period.EndMonth = input.EndMonth
	period.Status = input.Status
	period.Notes = input.Notes
	if err := s.db.Save(period).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return period, nil
}

// ValidatePeriod checks a period without storing it. excludeID names the
// period being edited so it does not overlap with itself.
func (s *planningPeriodService) ValidatePeriod(input PlanningPeriodInput, excludeID string) (*PeriodValidation, error) {
	result := &PeriodValidation{Errors: []string{}}

	if strings.TrimSpace(input.Name) == "" {
		result.Errors = append(result.Errors, "name is required")
	}
	switch input.Status {
	case "", models.PlanningPeriodOpen, models.PlanningPeriodClosed:
	default:
		result.Errors = append(result.Errors, "status must be 'open' or 'closed'")
	}

	startOK := budget.IsMonthKey(input.StartMonth)
	endOK := budget.IsMonthKey(input.EndMonth)
	if !startOK {
		result.Errors = append(result.Errors, "start month must use the YYYY-MM format")
	}
	if !endOK {
		result.Errors = append(result.Errors, "end month must use the YYYY-MM format")
	}

	if startOK && endOK {
		months, _ := budget.MonthsBetween(input.StartMonth, input.EndMonth)
		switch {
		case len(months) == 0:
			result.Errors = append(result.Errors, "start month must not be after end month")
		case len(months) > maxPeriodMonths:
			result.Errors = append(result.Errors, fmt.Sprintf("a planning period cannot span more than %d months", maxPeriodMonths))
		}

		overlapping, err := s.overlapping(input.StartMonth, input.EndMonth, excludeID)
		if err != nil {
			return nil, err
		}
		for _, other := range overlapping {
			result.Errors = append(result.Errors,
				fmt.Sprintf("overlaps with %q (%s to %s)", other.Name, other.StartMonth, other.EndMonth))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (s *planningPeriodService) mustValidate(input PlanningPeriodInput, excludeID string) error {
	validation, err := s.ValidatePeriod(input, excludeID)
	if err != nil {
		return err
	}
	if !validation.Valid {
		return apperrors.WithDetails(apperrors.ErrInvalidPlanningPeriod,
			strings.Join(validation.Errors, "; "), validation.Errors)
	}
	return nil
}

// overlapping finds periods sharing at least one month with [start, end].
// Month keys compare correctly as strings.
func (s *planningPeriodService) overlapping(start, end, excludeID string) ([]models.PlanningPeriod, error) {
	query := s.db.Where("start_month <= ? AND end_month >= ?", end, start)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var periods []models.PlanningPeriod
	if err := query.Order("start_month ASC").Find(&periods).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return periods, nil
}
