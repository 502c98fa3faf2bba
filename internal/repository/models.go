package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/domain"
)

// PartitionMonthKey formats the origination month used to partition records.
const PartitionMonthKey = "2006-01"

// ProspectRecordModel is the persistence model for prospect_records. Records
// are addressed by (prospect id, phone) and partitioned by origination month;
// the partition column is a repository detail, never exposed to callers.
type ProspectRecordModel struct {
	ProspectID     string        `gorm:"type:varchar(64);primaryKey"`
	Phone          string        `gorm:"type:varchar(20);primaryKey"`
	PartitionMonth string        `gorm:"type:varchar(7);not null"`
	ListID         string        `gorm:"type:varchar(64);not null"`
	FirstName      string        `gorm:"type:varchar(128)"`
	LastName       string        `gorm:"type:varchar(128)"`
	TotalAttempts  int           `gorm:"not null;default:0"`
	AttemptsToday  int           `gorm:"not null;default:0"`
	LastAttemptDay string        `gorm:"type:varchar(10)"`
	LastAttemptAt  *time.Time    `gorm:"type:timestamptz"`
	NextEligibleAt *time.Time    `gorm:"type:timestamptz"`
	Outcomes       []byte        `gorm:"type:jsonb"`
	LastOutcome    string        `gorm:"type:varchar(20)"`
	LastCallID     string        `gorm:"type:varchar(64)"`
	Status         domain.Status `gorm:"type:varchar(24);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ProspectRecordModel) TableName() string {
	return "prospect_records"
}

// QuarantineModel is the persistence model for quarantined intake payloads:
// malformed records are kept for inspection, never silently dropped.
type QuarantineModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	ProspectID string `gorm:"type:varchar(64)"`
	RawPhone   string `gorm:"type:varchar(64)"`
	ListID     string `gorm:"type:varchar(64)"`
	Reason     string `gorm:"type:text;not null"`
	Payload    []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

func (QuarantineModel) TableName() string {
	return "quarantined_prospects"
}

func prospectModelFromDomain(r *domain.ProspectRecord) (*ProspectRecordModel, error) {
	if r == nil {
		return nil, nil
	}

	outcomes, err := json.Marshal(r.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome history: %w", err)
	}

	return &ProspectRecordModel{
		ProspectID:     r.ProspectID,
		Phone:          r.Phone,
		PartitionMonth: r.CreatedAt.Format(PartitionMonthKey),
		ListID:         r.ListID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		TotalAttempts:  r.TotalAttempts,
		AttemptsToday:  r.AttemptsToday,
		LastAttemptDay: r.LastAttemptDay,
		LastAttemptAt:  r.LastAttemptAt,
		NextEligibleAt: r.NextEligibleAt,
		Outcomes:       outcomes,
		LastOutcome:    string(r.LastOutcome),
		LastCallID:     r.LastCallID,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func prospectModelToDomain(m *ProspectRecordModel) (*domain.ProspectRecord, error) {
	if m == nil {
		return nil, nil
	}

	var outcomes []domain.OutcomeEvent
	if len(m.Outcomes) > 0 {
		if err := json.Unmarshal(m.Outcomes, &outcomes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outcome history: %w", err)
		}
	}

	return &domain.ProspectRecord{
		ProspectID:     m.ProspectID,
		Phone:          m.Phone,
		ListID:         m.ListID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		TotalAttempts:  m.TotalAttempts,
		AttemptsToday:  m.AttemptsToday,
		LastAttemptDay: m.LastAttemptDay,
		LastAttemptAt:  m.LastAttemptAt,
		NextEligibleAt: m.NextEligibleAt,
		Outcomes:       outcomes,
		LastOutcome:    domain.OutcomeCode(m.LastOutcome),
		LastCallID:     m.LastCallID,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
