package model

import (
	"errors"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleLead       Role = "lead"
	RoleManager    Role = "manager"
	RoleManagement Role = "management"
	RoleSuperAdmin Role = "super_admin"
)

// Valid 判断角色是否合法
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleLead, RoleManager, RoleManagement, RoleSuperAdmin:
		return true
	}
	return false
}

// CanDecideLead 判断角色是否可以执行 Lead 层审批
func (r Role) CanDecideLead() bool {
	switch r {
	case RoleLead, RoleManager, RoleManagement, RoleSuperAdmin:
		return true
	}
	return false
}

// CanDecideManager 判断角色是否可以执行 Manager 层审批
func (r Role) CanDecideManager() bool {
	switch r {
	case RoleManager, RoleManagement, RoleSuperAdmin:
		return true
	}
	return false
}

// CanDecideManagement 判断角色是否可以执行 Management 层审批
func (r Role) CanDecideManagement() bool {
	switch r {
	case RoleManagement, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin 判断是否为超级管理员(维护修复操作仅限该角色)
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin
}

// UserModel 用户数据模型
// 用户由外部用户管理系统维护,本服务仅按 ID 引用并读取角色
type UserModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	Name       string    `gorm:"type:varchar(255);not null"`
	Email      string    `gorm:"type:varchar(255);index"`
	Role       Role      `gorm:"type:varchar(32);not null;index"`
	IsActive   bool      `gorm:"not null;default:true"`
	IsApproved bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (um *UserModel) Validate() error {
	if um.ID == "" {
		return errors.New("user ID is required")
	}
	if um.Name == "" {
		return errors.New("user name is required")
	}
	if !um.Role.Valid() {
		return errors.New("user role is invalid")
	}
	return nil
}
