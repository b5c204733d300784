package repository

import (
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	FindByID(id string) (*model.ProjectModel, error)
	FindByIDs(ids []string) (map[string]*model.ProjectModel, error)
}

// projectRepository 项目仓储实现
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// FindByID 根据 ID 查找项目
func (r *projectRepository) FindByID(id string) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDs 批量查找项目,返回 ID 映射
func (r *projectRepository) FindByIDs(ids []string) (map[string]*model.ProjectModel, error) {
	if len(ids) == 0 {
		return map[string]*model.ProjectModel{}, nil
	}

	var projects []*model.ProjectModel
	if err := r.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, err
	}

	result := make(map[string]*model.ProjectModel, len(projects))
	for _, p := range projects {
		result[p.ID] = p
	}
	return result, nil
}
