package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// activeStatuses are the statuses a reconciliation loop may still be watching
var activeStatuses = []string{
	string(printing.JobStatusPending),
	string(printing.JobStatusProcessing),
	string(printing.JobStatusHeld),
}

// terminalStatuses are never overwritten by UpdateFields
var terminalStatuses = []string{
	string(printing.JobStatusCompleted),
	string(printing.JobStatusAborted),
	string(printing.JobStatusCanceled),
}

// GormPrintJobRepository implements PrintJobRepository using GORM
type GormPrintJobRepository struct {
	db *gorm.DB
}

// NewGormPrintJobRepository creates a new GormPrintJobRepository
func NewGormPrintJobRepository(db *gorm.DB) *GormPrintJobRepository {
	return &GormPrintJobRepository{db: db}
}

// Create inserts a new job record
func (r *GormPrintJobRepository) Create(ctx context.Context, job *printing.PrintJob) error {
	model := models.PrintJobModelFromDomain(job)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create print job: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update to one job record.
// Rows already in a terminal status are not matched, so a late writer
// holding a stale copy cannot reopen a finished job.
func (r *GormPrintJobRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields printing.JobFieldsUpdate) error {
	cols := models.PrintJobUpdateColumns(fields)
	if len(cols) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.PrintJobModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update print job: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PrintJobModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check print job: %w", err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return printing.ErrJobFinished
}

// FindByID finds a job by ID
func (r *GormPrintJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*printing.PrintJob, error) {
	var model models.PrintJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRequester lists the jobs submitted by one requester
func (r *GormPrintJobRepository) FindByRequester(ctx context.Context, requesterID string, filter printing.PrintJobFilter) ([]printing.PrintJob, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.PrintJobModel{}).Where("requester_id = ?", requesterID)
	return r.list(base, filter)
}

// FindAll lists all jobs
func (r *GormPrintJobRepository) FindAll(ctx context.Context, filter printing.PrintJobFilter) ([]printing.PrintJob, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.PrintJobModel{})
	return r.list(base, filter)
}

// FindActive returns non-terminal jobs that already carry a backend handle
func (r *GormPrintJobRepository) FindActive(ctx context.Context) ([]printing.PrintJob, error) {
	var jobModels []models.PrintJobModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND backend_handle <> ?", activeStatuses, "").
		Order("created_at ASC").
		Find(&jobModels).Error; err != nil {
		return nil, err
	}
	return toDomainJobs(jobModels), nil
}

func (r *GormPrintJobRepository) list(base *gorm.DB, filter printing.PrintJobFilter) ([]printing.PrintJob, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(base.Session(&gorm.Session{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobModels []models.PrintJobModel
	if err := r.applyFilter(base.Session(&gorm.Session{}), filter).Find(&jobModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainJobs(jobModels), total, nil
}

// applyFilter applies filter options to the query
func (r *GormPrintJobRepository) applyFilter(query *gorm.DB, filter printing.PrintJobFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, PrintJobSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPrintJobRepository) applyFilterWithoutPagination(query *gorm.DB, filter printing.PrintJobFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.PrinterID != "" {
		query = query.Where("printer_id = ?", filter.PrinterID)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "printer_id":
			query = query.Where("printer_id = ?", value)
		case "source_format":
			query = query.Where("source_format = ?", value)
		case "page_layout":
			query = query.Where("page_layout = ?", value)
		}
	}

	return query
}

func toDomainJobs(jobModels []models.PrintJobModel) []printing.PrintJob {
	jobs := make([]printing.PrintJob, len(jobModels))
	for i := range jobModels {
		jobs[i] = *jobModels[i].ToDomain()
	}
	return jobs
}

// Ensure GormPrintJobRepository implements PrintJobRepository
var _ printing.PrintJobRepository = (*GormPrintJobRepository)(nil)
