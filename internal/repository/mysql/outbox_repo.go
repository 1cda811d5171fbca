package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Vid_Community/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// insertOutbox 与业务写入处于同一事务
func insertOutbox(tx *gorm.DB, event string, aggregateID uint64, fields map[string]any) error {
	body := map[string]any{
		"event": event,
		"id":    aggregateID,
		"at":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&model.Outbox{
		EventType:   event,
		AggregateID: aggregateID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}).Error
}

// List 按 id 顺序取待投递事件
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.Outbox, error) {
	var list []model.Outbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

// MarkRetry 失败重试计数；达到 maxRetry 后置为 failed 不再投递
func (r *OutboxRepository) MarkRetry(ctx context.Context, ob *model.Outbox, maxRetry int) error {
	retry := ob.Retry + 1
	status := model.OutboxPending
	if retry >= maxRetry {
		status = model.OutboxFailed
	}
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ? AND retry = ?", ob.ID, ob.Retry).
		Updates(map[string]any{"retry": retry, "status": status}).Error
}

// CountByStatus 积压 gauge 使用
func (r *OutboxRepository) CountByStatus(ctx context.Context, status int8) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
