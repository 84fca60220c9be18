package service

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type attendanceQueryStore interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	AbsenceDetails(ctx context.Context, orgID string, logicalDate time.Time) ([]models.AbsenceDetailRow, error)
}

// AttendanceService answers read queries over recorded attendance.
type AttendanceService struct {
	store    attendanceQueryStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(store attendanceQueryStore, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: store, validate: validator.New(), logger: logger}
}

// ListInput scopes a record listing.
type ListInput struct {
	PersonID string `validate:"required"`
	DateFrom *time.Time
	DateTo   *time.Time
}

// List returns a person's records, newest first.
func (s *AttendanceService) List(ctx context.Context, in ListInput) ([]models.AttendanceRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list input")
	}
	records, err := s.store.List(ctx, models.AttendanceFilter{
		PersonID: in.PersonID,
		DateFrom: in.DateFrom,
		DateTo:   in.DateTo,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "list attendance records")
	}
	return records, nil
}

// MonthlyReport aggregates one calendar month for a person. The attendance
// rate counts present and late days against the days of the month, rounded
// to two decimals.
func (s *AttendanceService) MonthlyReport(ctx context.Context, personID string, year, month int) (*models.MonthlySummary, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id is required")
	}
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	records, err := s.store.List(ctx, models.AttendanceFilter{
		PersonID: personID,
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "list attendance records")
	}

	summary := &models.MonthlySummary{
		Year:      year,
		Month:     month,
		TotalDays: to.Day(),
		Records:   records,
	}
	for _, rec := range records {
		switch rec.Status {
		case models.AttendanceStatusPresent, models.AttendanceStatusAutoClosed:
			summary.PresentDays++
		case models.AttendanceStatusLate:
			summary.LateDays++
		case models.AttendanceStatusAbsent:
			summary.AbsentDays++
		case models.AttendanceStatusEarlyDeparture:
			summary.EarlyDepartureDays++
		}
	}
	attended := summary.PresentDays + summary.LateDays
	if summary.TotalDays > 0 {
		summary.AttendanceRate = math.Round(float64(attended)/float64(summary.TotalDays)*10000) / 100
	}
	return summary, nil
}

// AbsenceDetails groups a day's non-present records for an organization.
func (s *AttendanceService) AbsenceDetails(ctx context.Context, orgID string, logicalDate time.Time) (*models.AbsenceDetails, error) {
	if orgID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "org id is required")
	}
	rows, err := s.store.AbsenceDetails(ctx, orgID, logicalDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "load absence details")
	}

	details := &models.AbsenceDetails{
		Absent:         []models.AbsenceDetailRow{},
		Late:           []models.AbsenceDetailRow{},
		EarlyDeparture: []models.AbsenceDetailRow{},
	}
	for _, row := range rows {
		switch row.Status {
		case models.AttendanceStatusAbsent:
			details.Absent = append(details.Absent, row)
		case models.AttendanceStatusLate:
			details.Late = append(details.Late, row)
		case models.AttendanceStatusEarlyDeparture:
			details.EarlyDeparture = append(details.EarlyDeparture, row)
		}
	}
	return details, nil
}
