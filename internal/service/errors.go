package service

import (
	"errors"
	"fmt"
)

// ValidationError 输入校验错误
// 同步返回给调用方,绝不修改任何状态
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建输入校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateTransitionError 非法状态迁移错误
// 当前聚合状态或子状态不允许该操作;操作失败且不产生任何写入
type InvalidStateTransitionError struct {
	Current string
	Action  string
	Reason  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s in state %s: %s", e.Action, e.Current, e.Reason)
}

// NewInvalidStateTransition 创建非法状态迁移错误
func NewInvalidStateTransition(current, action, reason string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{Current: current, Action: action, Reason: reason}
}

// NotFoundError 记录不存在错误
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFound 创建记录不存在错误
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AggregationError 计费聚合错误
// 聚合过程中引用的用户/项目/费率无法解析
type AggregationError struct {
	Resource string
	ID       string
	Message  string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed on %s %s: %s", e.Resource, e.ID, e.Message)
}

// NewAggregationError 创建计费聚合错误
func NewAggregationError(resource, id, message string) *AggregationError {
	return &AggregationError{Resource: resource, ID: id, Message: message}
}

// ConsistencyError 不变量违例
// 由修复程序检测并自行修正,只记录日志,从不抛给最终用户
type ConsistencyError struct {
	Record  string
	ID      string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent %s %s: %s", e.Record, e.ID, e.Message)
}

// ErrVersionConflict 乐观锁版本冲突
// 同一工时单上的并发审批操作触发,内部重试,不直接暴露
var ErrVersionConflict = errors.New("timesheet version conflict")

// IsValidation 判断是否为输入校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidTransition 判断是否为非法状态迁移错误
func IsInvalidTransition(err error) bool {
	var te *InvalidStateTransitionError
	return errors.As(err, &te)
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsAggregation 判断是否为计费聚合错误
func IsAggregation(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}

// IsVersionConflict 判断是否为乐观锁版本冲突
// 重试耗尽后冲突会逃逸到调用方,按并发前置条件失败处理
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
