package repository

import (
	"errors"
	"time"

	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// BillingRateRepository 计费费率仓储接口
// 费率表由外部维护,本服务按 (user, project, 生效日) 查询
type BillingRateRepository interface {
	Save(rate *model.BillingRateModel) error
	EffectiveRate(userID, projectID string, at time.Time) (*model.BillingRateModel, error)
}

// billingRateRepository 计费费率仓储实现
type billingRateRepository struct {
	db *gorm.DB
}

// NewBillingRateRepository 创建计费费率仓储
func NewBillingRateRepository(db *gorm.DB) BillingRateRepository {
	return &billingRateRepository{db: db}
}

// Save 保存费率
func (r *billingRateRepository) Save(rate *model.BillingRateModel) error {
	return r.db.Save(rate).Error
}

// EffectiveRate 查找指定日期生效的费率
// 项目专属费率优先,未配置时回退到用户默认费率(project_id 为空)
func (r *billingRateRepository) EffectiveRate(userID, projectID string, at time.Time) (*model.BillingRateModel, error) {
	var rate model.BillingRateModel

	if projectID != "" {
		err := r.db.Where("user_id = ? AND project_id = ? AND effective_from <= ?", userID, projectID, at).
			Order("effective_from DESC").
			First(&rate).Error
		if err == nil {
			return &rate, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := r.db.Where("user_id = ? AND project_id IS NULL AND effective_from <= ?", userID, at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
