package repository

import (
	"context"
	"errors"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
	"gorm.io/gorm"
)

// dispatchableStatuses are the lifecycle states a cycle may pick up.
// DAILY_CAP_REACHED is included so capped records are re-derived each cycle
// and resume automatically after day rollover.
var dispatchableStatuses = []domain.Status{
	domain.StatusPending,
	domain.StatusRescheduled,
	domain.StatusDailyCapReached,
}

type ProspectRepository interface {
	Create(ctx context.Context, r *domain.ProspectRecord) error
	GetByKey(ctx context.Context, prospectID, phone string) (*domain.ProspectRecord, error)
	Update(ctx context.Context, r *domain.ProspectRecord) error
	ListDispatchable(ctx context.Context, createdFrom time.Time, limit int) ([]domain.ProspectRecord, error)
	ListByMonth(ctx context.Context, month time.Time, limit, offset int) ([]domain.ProspectRecord, error)
	ResetDailyCounts(ctx context.Context, today string) (int64, error)
}

type GormProspectRepo struct {
	db *gorm.DB
}

func NewGormProspectRepo(db *gorm.DB) *GormProspectRepo {
	return &GormProspectRepo{db: db}
}

func (r *GormProspectRepo) Create(ctx context.Context, record *domain.ProspectRecord) error {
	model, err := prospectModelFromDomain(record)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}

	restored, err := prospectModelToDomain(model)
	if err != nil {
		return err
	}
	if record != nil {
		*record = *restored
	}
	return nil
}

func (r *GormProspectRepo) GetByKey(ctx context.Context, prospectID, phone string) (*domain.ProspectRecord, error) {
	var model ProspectRecordModel
	err := r.db.WithContext(ctx).
		First(&model, "prospect_id = ? AND phone = ?", prospectID, phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return prospectModelToDomain(&model)
}

func (r *GormProspectRepo) Update(ctx context.Context, record *domain.ProspectRecord) error {
	model, err := prospectModelFromDomain(record)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&ProspectRecordModel{}).
		Where("prospect_id = ? AND phone = ?", model.ProspectID, model.Phone).
		Select("*").
		Omit("prospect_id", "phone", "partition_month", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDispatchable returns candidate records for one scheduling cycle, in a
// stable deterministic order so throttling favors the same subset of due
// records consistently.
func (r *GormProspectRepo) ListDispatchable(ctx context.Context, createdFrom time.Time, limit int) ([]domain.ProspectRecord, error) {
	var models []ProspectRecordModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at >= ?", dispatchableStatuses, createdFrom).
		// NULLS FIRST favors never-attempted records over rescheduled ones.
		Order("next_eligible_at ASC NULLS FIRST, prospect_id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return modelsToDomain(models)
}

// ListByMonth scans one origination-month partition.
func (r *GormProspectRepo) ListByMonth(ctx context.Context, month time.Time, limit, offset int) ([]domain.ProspectRecord, error) {
	var models []ProspectRecordModel
	err := r.db.WithContext(ctx).
		Where("partition_month = ?", month.Format(PartitionMonthKey)).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return modelsToDomain(models)
}

// ResetDailyCounts zeroes attempts_today on rows whose last attempt fell on
// an earlier local day. Scheduling re-derives the same thing per record; the
// bulk reset keeps the stored counters truthful for readers.
func (r *GormProspectRepo) ResetDailyCounts(ctx context.Context, today string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ProspectRecordModel{}).
		Where("attempts_today > 0 AND last_attempt_day <> ?", today).
		Update("attempts_today", 0)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func modelsToDomain(models []ProspectRecordModel) ([]domain.ProspectRecord, error) {
	records := make([]domain.ProspectRecord, 0, len(models))
	for i := range models {
		record, err := prospectModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}
