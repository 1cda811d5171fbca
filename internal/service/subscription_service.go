package service

import (
	"context"
	"errors"
	"fmt"

	"Vid_Community/internal/model"
	"Vid_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	msgSelfSubscription      = "cannot subscribe to yourself"
	msgDuplicateSubscription = "The fields subscriber, subscribed_to must make a unique set."
)

type SubscriptionService struct {
	repo  *mysql.SubscriptionRepository
	users *mysql.UserRepository
	log   zerolog.Logger
}

func NewSubscriptionService(repo *mysql.SubscriptionRepository, users *mysql.UserRepository, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		users: users,
		log:   log.With().Str("component", "subscription_service").Logger(),
	}
}

func (s *SubscriptionService) List(ctx context.Context, actor *model.User) ([]model.Subscription, error) {
	return s.repo.ListBySubscriber(ctx, actor.ID)
}

// Create 校验顺序：目标存在 -> 不能订阅自己 -> 不能重复订阅
func (s *SubscriptionService) Create(ctx context.Context, actor *model.User, targetID uint64) (*model.Subscription, error) {
	ok, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("check target user: %w", err)
	}
	if !ok {
		return nil, NewValidationError("subscribed_to", invalidPK(targetID))
	}
	if targetID == actor.ID {
		return nil, NewValidationError(NonFieldErrors, msgSelfSubscription)
	}
	dup, err := s.repo.Exists(ctx, actor.ID, targetID)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if dup {
		return nil, NewValidationError(NonFieldErrors, msgDuplicateSubscription)
	}

	sub := &model.Subscription{SubscriberID: actor.ID, SubscribedToID: targetID}
	if err = s.repo.Create(ctx, sub); err != nil {
		// 并发下由唯一索引拦截
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError(NonFieldErrors, msgDuplicateSubscription)
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.log.Info().Uint64("subscriber", actor.ID).Uint64("subscribed_to", targetID).Msg("subscribed")
	return sub, nil
}

// Delete 只有订阅者本人可以取消，管理员也不例外
func (s *SubscriptionService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find subscription: %w", err)
	}
	if sub.SubscriberID != actor.ID {
		return ErrNotSubscriber
	}
	if err = s.repo.Delete(ctx, sub); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
