package repository

import (
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
// 用户数据由外部系统写入,本服务只读
type UserRepository interface {
	FindByID(id string) (*model.UserModel, error)
	FindByIDs(ids []string) (map[string]*model.UserModel, error)
	Exists(id string) (bool, error)
}

// userRepository 用户仓储实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID 根据 ID 查找用户
func (r *userRepository) FindByID(id string) (*model.UserModel, error) {
	var user model.UserModel
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs 批量查找用户,返回 ID 映射
func (r *userRepository) FindByIDs(ids []string) (map[string]*model.UserModel, error) {
	if len(ids) == 0 {
		return map[string]*model.UserModel{}, nil
	}

	var users []*model.UserModel
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	result := make(map[string]*model.UserModel, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// Exists 判断用户是否存在
func (r *userRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&model.UserModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
