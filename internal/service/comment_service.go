package service

import (
	"context"
	"errors"
	"fmt"

	"Vid_Community/internal/model"
	"Vid_Community/internal/repository/mysql"

	"gorm.io/gorm"
)

type CommentService struct {
	repo   *mysql.CommentRepository
	videos *mysql.VideoRepository
}

func NewCommentService(repo *mysql.CommentRepository, videos *mysql.VideoRepository) *CommentService {
	return &CommentService{repo: repo, videos: videos}
}

func (s *CommentService) List(ctx context.Context) ([]model.Comment, error) {
	return s.repo.List(ctx)
}

func (s *CommentService) Get(ctx context.Context, id uint64) (*model.Comment, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

// Create the_video 必须指向已存在的视频
func (s *CommentService) Create(ctx context.Context, actor *model.User, content string, videoID uint64) (*model.Comment, error) {
	ok, err := s.videos.Exists(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("check video: %w", err)
	}
	if !ok {
		return nil, NewValidationError("the_video", invalidPK(videoID))
	}

	c := &model.Comment{Content: content, CreatorID: actor.ID, VideoID: videoID}
	if err = s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	c.Creator = *actor
	return c, nil
}

// Delete 与视频、帖子相同的作者或管理员规则
func (s *CommentService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanModify(actor, c.CreatorID) {
		return ErrPermissionDenied
	}
	if err = s.repo.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
