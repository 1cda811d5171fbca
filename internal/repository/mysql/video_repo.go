package mysql

import (
	"context"

	"Vid_Community/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

// withRelations 预加载作者与评论 id（列表只渲染评论链接）
func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "video_id").Order("id ASC")
		})
}

func (r *VideoRepository) List(ctx context.Context) ([]model.Video, error) {
	var list []model.Video
	err := withRelations(r.DB.WithContext(ctx)).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *VideoRepository) FindByID(ctx context.Context, id uint64) (*model.Video, error) {
	var v model.Video
	err := withRelations(r.DB.WithContext(ctx)).First(&v, id).Error
	return &v, err
}

// Exists 评论创建时校验 the_video
func (r *VideoRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Video{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create 写入视频并记录 video.created 事件
func (r *VideoRepository) Create(ctx context.Context, v *model.Video) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Creator", "Comments").Create(v).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventVideoCreated, v.ID, map[string]any{
			"creator_id": v.CreatorID,
			"title":      v.Title,
		})
	})
}

// Update 只更新标题、描述和时间戳；文件与作者不可变
func (r *VideoRepository) Update(ctx context.Context, v *model.Video) error {
	return r.DB.WithContext(ctx).Model(&model.Video{}).Where("id = ?", v.ID).
		Updates(map[string]any{
			"title":      v.Title,
			"desc":       v.Desc,
			"created_at": v.CreatedAt,
		}).Error
}

// Delete 事务内先删评论再删视频，并记录 video.deleted 事件
func (r *VideoRepository) Delete(ctx context.Context, v *model.Video) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", v.ID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Video{}, v.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertOutbox(tx, model.EventVideoDeleted, v.ID, map[string]any{
			"creator_id": v.CreatorID,
		})
	})
}
