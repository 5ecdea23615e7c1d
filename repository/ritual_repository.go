package repository

import (
	"context"
	"errors"
	"time"

	"VoidFM/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RitualRepository 仪式（发行作品）镜像的数据访问接口
type RitualRepository interface {
	// Rituals lists the mirror newest first; it satisfies catalog.RitualSource.
	Rituals(ctx context.Context) ([]model.Ritual, error)
	GetBySlug(ctx context.Context, slug string) (*model.Ritual, error)
	Upsert(ctx context.Context, ritual *model.Ritual) error
	DeleteMissing(ctx context.Context, keepIDs []string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// gormRitualRepository GORM 实现
type gormRitualRepository struct {
	db *gorm.DB
}

// NewGormRitualRepository 创建 GORM 仪式仓库
func NewGormRitualRepository(db *gorm.DB) RitualRepository {
	return &gormRitualRepository{db: db}
}

// Rituals 按发行日期倒序返回全部仪式
func (r *gormRitualRepository) Rituals(ctx context.Context) ([]model.Ritual, error) {
	var rituals []model.Ritual
	err := r.db.WithContext(ctx).
		Order("release_date DESC").
		Order("id").
		Find(&rituals).Error
	return rituals, err
}

// GetBySlug 根据 slug 获取，不存在返回 nil
func (r *gormRitualRepository) GetBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	var ritual model.Ritual
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&ritual).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ritual, nil
}

// Upsert 按主键插入或整体覆盖
func (r *gormRitualRepository) Upsert(ctx context.Context, ritual *model.Ritual) error {
	ritual.SyncedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(ritual).Error
}

// DeleteMissing 删除不在 keepIDs 中的记录
func (r *gormRitualRepository) DeleteMissing(ctx context.Context, keepIDs []string) (int64, error) {
	q := r.db.WithContext(ctx)
	if len(keepIDs) > 0 {
		q = q.Where("id NOT IN ?", keepIDs)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&model.Ritual{})
	return res.RowsAffected, res.Error
}

// Count 统计记录数
func (r *gormRitualRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Ritual{}).Count(&n).Error
	return n, err
}
