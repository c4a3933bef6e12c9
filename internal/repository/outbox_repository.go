package repository

import (
	"elearning_backend/internal/model"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func (r *OutboxRepository) WithTx(tx *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: tx}
}

// Add appends an event. Call it with the repository bound to the transaction
// that performs the state change.
func (r *OutboxRepository) Add(topic string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.DB.Create(&model.OutboxEvent{
		Topic:   topic,
		Payload: datatypes.JSON(raw),
		Status:  model.OutboxPending,
	}).Error
}

func (r *OutboxRepository) ListPending(limit int) ([]model.OutboxEvent, error) {
	var evs []model.OutboxEvent
	err := r.DB.Where("status = ?", model.OutboxPending).
		Order("created_at asc").
		Limit(limit).
		Find(&evs).Error
	return evs, err
}

func (r *OutboxRepository) ListByTopic(topic string) ([]model.OutboxEvent, error) {
	var evs []model.OutboxEvent
	err := r.DB.Where("topic = ?", topic).Order("created_at asc").Find(&evs).Error
	return evs, err
}

func (r *OutboxRepository) MarkSent(id string, at time.Time) error {
	return r.DB.Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   model.OutboxSent,
			"sent_at":  at,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// MarkAttemptFailed records a failed publish. After maxAttempts the event is
// parked as failed and no longer picked up.
func (r *OutboxRepository) MarkAttemptFailed(ev *model.OutboxEvent, cause error, maxAttempts int) error {
	attempts := ev.Attempts + 1
	status := model.OutboxPending
	if maxAttempts > 0 && attempts >= maxAttempts {
		status = model.OutboxFailed
	}
	return r.DB.Model(&model.OutboxEvent{}).
		Where("id = ?", ev.ID).
		Updates(map[string]interface{}{
			"attempts":   attempts,
			"status":     status,
			"last_error": cause.Error(),
		}).Error
}
