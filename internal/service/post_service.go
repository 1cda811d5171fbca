package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"Vid_Community/internal/model"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type PostService struct {
	repo    *mysql.PostRepository
	storage pkg.MediaStorage
	log     zerolog.Logger
}

func NewPostService(repo *mysql.PostRepository, storage pkg.MediaStorage, log zerolog.Logger) *PostService {
	return &PostService{
		repo:    repo,
		storage: storage,
		log:     log.With().Str("component", "post_service").Logger(),
	}
}

// PostInput Image 为空时保留原图
type PostInput struct {
	Body  string
	Image *multipart.FileHeader
}

func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	return s.repo.List(ctx)
}

func (s *PostService) Get(ctx context.Context, id uint64) (*model.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return p, nil
}

func (s *PostService) Create(ctx context.Context, actor *model.User, in PostInput) (*model.Post, error) {
	p := &model.Post{Body: in.Body, CreatorID: actor.ID}
	if in.Image != nil {
		if err := checkImage("post_image", in.Image); err != nil {
			return nil, err
		}
		key, err := s.storage.Save(ctx, pkg.PostImageDir, in.Image)
		if err != nil {
			return nil, fmt.Errorf("store post image: %w", err)
		}
		p.Image = key
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.removeMedia(ctx, p.Image)
		return nil, fmt.Errorf("create post: %w", err)
	}
	p.Creator = *actor
	return p, nil
}

func (s *PostService) Editable(ctx context.Context, actor *model.User, id uint64) (*model.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, p.CreatorID) {
		return nil, ErrPermissionDenied
	}
	return p, nil
}

func (s *PostService) Update(ctx context.Context, actor *model.User, id uint64, in PostInput) (*model.Post, error) {
	p, err := s.Editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldImage := p.Image
	p.Body = in.Body
	if in.Image != nil {
		if err = checkImage("post_image", in.Image); err != nil {
			return nil, err
		}
		key, err := s.storage.Save(ctx, pkg.PostImageDir, in.Image)
		if err != nil {
			return nil, fmt.Errorf("store post image: %w", err)
		}
		p.Image = key
	}
	if err = s.repo.Update(ctx, p); err != nil {
		if p.Image != oldImage {
			s.removeMedia(ctx, p.Image)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	if p.Image != oldImage {
		s.removeMedia(ctx, oldImage)
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	p, err := s.Editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = s.repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.removeMedia(ctx, p.Image)
	return nil
}

func (s *PostService) MediaURL(key string) string {
	return s.storage.URL(key)
}

func (s *PostService) removeMedia(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("object_key", key).Msg("failed to remove post image")
	}
}
