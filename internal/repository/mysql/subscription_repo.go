package mysql

import (
	"context"

	"Vid_Community/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

// ListBySubscriber 仅返回当前用户发起的订阅
func (r *SubscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID uint64) ([]model.Subscription, error) {
	var list []model.Subscription
	err := r.DB.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint64) (*model.Subscription, error) {
	var s model.Subscription
	err := r.DB.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *SubscriptionRepository) Exists(ctx context.Context, subscriberID, targetID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscriber_id = ? AND subscribed_to_id = ?", subscriberID, targetID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create 唯一索引兜底并发重复订阅，冲突时返回 gorm.ErrDuplicatedKey
func (r *SubscriptionRepository) Create(ctx context.Context, s *model.Subscription) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Subscriber", "SubscribedTo").Create(s).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventSubscriptionCreated, s.ID, map[string]any{
			"subscriber":    s.SubscriberID,
			"subscribed_to": s.SubscribedToID,
		})
	})
}

func (r *SubscriptionRepository) Delete(ctx context.Context, s *model.Subscription) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Subscription{}, s.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertOutbox(tx, model.EventSubscriptionDeleted, s.ID, map[string]any{
			"subscriber":    s.SubscriberID,
			"subscribed_to": s.SubscribedToID,
		})
	})
}
