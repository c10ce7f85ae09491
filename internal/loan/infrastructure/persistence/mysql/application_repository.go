package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建 MySQL 申请检查点仓储
func NewApplicationRepository(db *gorm.DB) domain.ApplicationRepository {
	return &applicationRepository{db: db}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ApplicationModel{})
}

func (r *applicationRepository) Get(ctx context.Context, id string) (*domain.LoanApplication, error) {
	var model ApplicationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toApplication(&model)
}

// Save 以乐观版本号全量写入检查点。版本冲突说明并发轮次交错，
// 本轮写入失败，调用方可重放输入。
func (r *applicationRepository) Save(ctx context.Context, app *domain.LoanApplication) error {
	expected := app.Version
	app.Version = expected + 1

	model, err := toApplicationModel(app)
	if err != nil {
		app.Version = expected
		return err
	}

	if expected == 0 {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
		if result.Error != nil {
			app.Version = expected
			return result.Error
		}
		if result.RowsAffected == 0 {
			app.Version = expected
			return fmt.Errorf("application %s: concurrent create detected", app.ID)
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("id = ? AND version = ?", app.ID, expected).
		Updates(map[string]any{
			"stage":       model.Stage,
			"status":      model.Status,
			"interrupted": model.Interrupted,
			"record":      model.Record,
			"version":     model.Version,
		})
	if result.Error != nil {
		app.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		app.Version = expected
		return fmt.Errorf("application %s: stale checkpoint version %d", app.ID, expected)
	}
	return nil
}

// Replace 管理操作：无条件覆盖同 id 记录。
// 覆盖后的版本号从 1 起算，后续 Save 走版本守卫的更新路径
func (r *applicationRepository) Replace(ctx context.Context, app *domain.LoanApplication) error {
	prev := app.Version
	app.Version = prev + 1

	model, err := toApplicationModel(app)
	if err != nil {
		app.Version = prev
		return err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error; err != nil {
		app.Version = prev
		return err
	}
	return nil
}

func (r *applicationRepository) CountPendingInterrupts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("interrupted = ?", true).
		Count(&count).Error
	return count, err
}
