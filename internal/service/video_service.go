package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"Vid_Community/internal/model"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type VideoService struct {
	repo    *mysql.VideoRepository
	storage pkg.MediaStorage
	log     zerolog.Logger
	now     func() time.Time
}

func NewVideoService(repo *mysql.VideoRepository, storage pkg.MediaStorage, log zerolog.Logger) *VideoService {
	return &VideoService{
		repo:    repo,
		storage: storage,
		log:     log.With().Str("component", "video_service").Logger(),
		now:     time.Now,
	}
}

type VideoInput struct {
	File  *multipart.FileHeader
	Title string
	Desc  string
}

func (s *VideoService) List(ctx context.Context) ([]model.Video, error) {
	return s.repo.List(ctx)
}

func (s *VideoService) Get(ctx context.Context, id uint64) (*model.Video, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find video: %w", err)
	}
	return v, nil
}

// Create 先上传文件再落库；落库失败时删除已上传的对象
func (s *VideoService) Create(ctx context.Context, actor *model.User, in VideoInput) (*model.Video, error) {
	if in.File == nil {
		return nil, NewValidationError("video", "No file was submitted.")
	}
	if err := checkUpload("video", in.File); err != nil {
		return nil, err
	}
	key, err := s.storage.Save(ctx, pkg.VideoDir, in.File)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	v := &model.Video{
		File:      key,
		Title:     in.Title,
		Desc:      in.Desc,
		CreatorID: actor.ID,
		CreatedAt: s.now(),
	}
	if err = s.repo.Create(ctx, v); err != nil {
		s.removeMedia(ctx, key)
		return nil, fmt.Errorf("create video: %w", err)
	}
	v.Creator = *actor
	s.log.Info().Uint64("video_id", v.ID).Uint64("creator_id", actor.ID).Msg("video created")
	return v, nil
}

// Editable 取出视频并校验作者或管理员权限
func (s *VideoService) Editable(ctx context.Context, actor *model.User, id uint64) (*model.Video, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, v.CreatorID) {
		return nil, ErrPermissionDenied
	}
	return v, nil
}

// Update 标题与描述，同时刷新 created_at
func (s *VideoService) Update(ctx context.Context, actor *model.User, id uint64, title, desc string) (*model.Video, error) {
	v, err := s.Editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	v.Title = title
	v.Desc = desc
	v.CreatedAt = s.now()
	if err = s.repo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return v, nil
}

// Delete 评论随视频一并删除；对象存储中的文件尽力删除
func (s *VideoService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	v, err := s.Editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = s.repo.Delete(ctx, v); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete video: %w", err)
	}
	s.removeMedia(ctx, v.File)
	s.log.Info().Uint64("video_id", v.ID).Uint64("actor_id", actor.ID).Int("comments", len(v.Comments)).Msg("video deleted")
	return nil
}

func (s *VideoService) MediaURL(key string) string {
	return s.storage.URL(key)
}

func (s *VideoService) removeMedia(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("object_key", key).Msg("failed to remove media object")
	}
}
