package model

import (
	"errors"
	"time"
)

// ProjectModel 项目数据模型
// 项目的负责人配置决定每周审批记录中哪些子审批是必需的:
// 未配置 Lead 的项目跳过 Lead 层审批
type ProjectModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	Name             string    `gorm:"type:varchar(255);not null"`
	ClientID         string    `gorm:"type:varchar(64);index"` // 客户 ID(外部维护)
	PrimaryManagerID string    `gorm:"type:varchar(64);not null;index"`
	LeadID           *string   `gorm:"type:varchar(64);index"` // 可为空,无 Lead 项目跳过 Lead 审批
	IsBillable       bool      `gorm:"not null;default:true"`
	IsActive         bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ProjectModel) TableName() string {
	return "projects"
}

// Validate 验证项目模型
func (pm *ProjectModel) Validate() error {
	if pm.ID == "" {
		return errors.New("project ID is required")
	}
	if pm.Name == "" {
		return errors.New("project name is required")
	}
	if pm.PrimaryManagerID == "" {
		return errors.New("primary manager ID is required")
	}
	return nil
}

// HasLead 判断项目是否配置了 Lead
func (pm *ProjectModel) HasLead() bool {
	return pm.LeadID != nil && *pm.LeadID != ""
}
