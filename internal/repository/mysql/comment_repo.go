package mysql

import (
	"context"

	"Vid_Community/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Omit("Creator").Create(c).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.DB.WithContext(ctx).Preload("Creator").First(&c, id).Error
	return &c, err
}

func (r *CommentRepository) List(ctx context.Context) ([]model.Comment, error) {
	var list []model.Comment
	err := r.DB.WithContext(ctx).Preload("Creator").Order("id ASC").Find(&list).Error
	return list, err
}

func (r *CommentRepository) Delete(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Delete(&model.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
