package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuarantinedProspect is a malformed intake payload held for inspection.
type QuarantinedProspect struct {
	ID         string
	ProspectID string
	RawPhone   string
	ListID     string
	Reason     string
	Payload    []byte
	CreatedAt  time.Time
}

type QuarantineRepository interface {
	Create(ctx context.Context, q *QuarantinedProspect) error
	List(ctx context.Context, limit int) ([]QuarantinedProspect, error)
}

type GormQuarantineRepo struct {
	db *gorm.DB
}

func NewGormQuarantineRepo(db *gorm.DB) *GormQuarantineRepo {
	return &GormQuarantineRepo{db: db}
}

func (r *GormQuarantineRepo) Create(ctx context.Context, q *QuarantinedProspect) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	model := &QuarantineModel{
		ID:         q.ID,
		ProspectID: q.ProspectID,
		RawPhone:   q.RawPhone,
		ListID:     q.ListID,
		Reason:     q.Reason,
		Payload:    q.Payload,
		CreatedAt:  q.CreatedAt,
	}

	return r.db.WithContext(ctx).Create(model).Error
}

func (r *GormQuarantineRepo) List(ctx context.Context, limit int) ([]QuarantinedProspect, error) {
	if limit < 1 {
		limit = 50
	}

	var models []QuarantineModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	quarantined := make([]QuarantinedProspect, 0, len(models))
	for i := range models {
		m := models[i]
		quarantined = append(quarantined, QuarantinedProspect{
			ID:         m.ID,
			ProspectID: m.ProspectID,
			RawPhone:   m.RawPhone,
			ListID:     m.ListID,
			Reason:     m.Reason,
			Payload:    m.Payload,
			CreatedAt:  m.CreatedAt,
		})
	}

	return quarantined, nil
}
