package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"github.com/mautops/timesheet-gin/internal/service"
	"github.com/mautops/timesheet-gin/internal/utils"
)

// TimesheetController 工时单控制器
type TimesheetController struct {
	entryService    service.EntryService
	approvalService service.ApprovalService
	queryService    service.QueryService
	auditLogService service.AuditLogService
}

// NewTimesheetController 创建工时单控制器
func NewTimesheetController(
	entryService service.EntryService,
	approvalService service.ApprovalService,
	queryService service.QueryService,
	auditLogService service.AuditLogService,
) *TimesheetController {
	return &TimesheetController{
		entryService:    entryService,
		approvalService: approvalService,
		queryService:    queryService,
		auditLogService: auditLogService,
	}
}

// CreateTimesheetRequest 创建工时单请求
// @Description 获取或创建某用户某周的工时单
type CreateTimesheetRequest struct {
	UserID    string `json:"user_id" example:"user-001" binding:"required"`      // 用户 ID
	WeekStart string `json:"week_start" example:"2024-09-30" binding:"required"` // 周一日期(YYYY-MM-DD)
}

// validateRecordID 验证路径 ID 并返回错误响应（如果无效）
func validateRecordID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateRecordID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid record ID", err.Error())
		return false
	}
	return true
}

// Create 获取或创建工时单
// @Summary      获取或创建工时单
// @Description  员工首次记录某周工时时创建该周工时单,每用户每周唯一
// @Tags         工时单管理
// @Accept       json
// @Produce      json
// @Param        request body CreateTimesheetRequest true "工时单信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /timesheets [post]
// @Security     BearerAuth
func (c *TimesheetController) Create(ctx *gin.Context) {
	var req CreateTimesheetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", "week_start must be in YYYY-MM-DD format")
		return
	}

	ts, err := c.entryService.GetOrCreateTimesheet(ctx.Request.Context(), req.UserID, weekStart)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, ts)
}

// List 分页列出工时单
// @Summary      列出工时单
// @Description  按用户、状态和周范围过滤工时单
// @Tags         工时单管理
// @Produce      json
// @Param        user_id   query string false "用户 ID"
// @Param        status    query string false "聚合状态"
// @Param        week_from query string false "周起始下界"
// @Param        week_to   query string false "周起始上界"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /timesheets [get]
// @Security     BearerAuth
func (c *TimesheetController) List(ctx *gin.Context) {
	filter := &repository.TimesheetFilter{}
	if userID := ctx.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if status := ctx.Query("status"); status != "" {
		s := model.TimesheetStatus(status)
		filter.Status = &s
	}
	if from := ctx.Query("week_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", "week_from must be in YYYY-MM-DD format")
			return
		}
		filter.WeekFrom = &t
	}
	if to := ctx.Query("week_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", "week_to must be in YYYY-MM-DD format")
			return
		}
		filter.WeekTo = &t
	}
	filter.Page = intQuery(ctx, "page", 1)
	filter.PageSize = intQuery(ctx, "page_size", 20)

	sheets, total, err := c.queryService.ListTimesheets(filter)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Paginated(ctx, sheets, NewPagination(filter.Page, filter.PageSize, total))
}

// Get 获取工时单详情
// @Summary      获取工时单详情
// @Description  返回工时单及其条目和审批记录
// @Tags         工时单管理
// @Produce      json
// @Param        id path string true "工时单 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /timesheets/{id} [get]
// @Security     BearerAuth
func (c *TimesheetController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}

	detail, err := c.queryService.GetTimesheetDetail(id)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, detail)
}

// AddEntries 批量添加工时条目
// @Summary      添加工时条目
// @Description  向草稿或被驳回的工时单批量添加条目,整批校验
// @Tags         工时单管理
// @Accept       json
// @Produce      json
// @Param        id path string true "工时单 ID"
// @Param        request body service.AddEntriesRequest true "条目列表"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /timesheets/{id}/entries [post]
// @Security     BearerAuth
func (c *TimesheetController) AddEntries(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}

	var req service.AddEntriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entries, err := c.entryService.AddEntries(ctx.Request.Context(), id, &req)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, entries)
}

// RemoveEntry 删除工时条目
// @Summary      删除工时条目
// @Description  软删除条目,保留审计历史
// @Tags         工时单管理
// @Produce      json
// @Param        id path string true "条目 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /entries/{id} [delete]
// @Security     BearerAuth
func (c *TimesheetController) RemoveEntry(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}

	if err := c.entryService.RemoveEntry(ctx.Request.Context(), id); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Submit 提交工时单
// @Summary      提交工时单
// @Description  提交进入审批流,按项目生成审批记录
// @Tags         工时单管理
// @Produce      json
// @Param        id path string true "工时单 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /timesheets/{id}/submit [post]
// @Security     BearerAuth
func (c *TimesheetController) Submit(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}

	ts, err := c.approvalService.Submit(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, ts)
}

// History 查询工时单审计历史
// @Summary      工时单审计历史
// @Description  按时间倒序返回工时单的全部状态迁移事件
// @Tags         工时单管理
// @Produce      json
// @Param        id path string true "工时单 ID"
// @Success      200  {object}  Response
// @Router       /timesheets/{id}/history [get]
// @Security     BearerAuth
func (c *TimesheetController) History(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}

	logs, err := c.auditLogService.ListByRecord(model.TimesheetModel{}.TableName(), id)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, logs)
}

// intQuery 解析整型查询参数
func intQuery(ctx *gin.Context, key string, fallback int) int {
	if raw := ctx.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
