package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/service"
)

// ApprovalController 审批控制器
type ApprovalController struct {
	approvalService service.ApprovalService
	queryService    service.QueryService
}

// NewApprovalController 创建审批控制器
func NewApprovalController(approvalService service.ApprovalService, queryService service.QueryService) *ApprovalController {
	return &ApprovalController{
		approvalService: approvalService,
		queryService:    queryService,
	}
}

// DecideRequest 审批结论请求
// @Description 某工时单某项目的单层审批结论
type DecideRequest struct {
	ProjectID string `json:"project_id" example:"prj-001"`        // 项目 ID,空串表示非项目工时
	Approve   bool   `json:"approve" example:"true"`              // true 批准,false 驳回
	Reason    string `json:"reason" example:"hours do not match"` // 结论说明,驳回时必填
}

// parseTier 解析并验证审批层级路径参数
func parseTier(ctx *gin.Context) (model.ApprovalTier, bool) {
	tier := model.ApprovalTier(ctx.Param("tier"))
	switch tier {
	case model.TierLead, model.TierManager, model.TierManagement:
		return tier, true
	}
	Error(ctx, http.StatusBadRequest, "invalid approval tier", "tier must be lead, manager or management")
	return "", false
}

// Decide 写入审批结论
// @Summary      审批结论
// @Description  在指定层级批准或驳回某工时单某项目的工时
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        id   path string true "工时单 ID"
// @Param        tier path string true "审批层级" Enums(lead, manager, management)
// @Param        request body DecideRequest true "审批结论"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /timesheets/{id}/approvals/{tier} [post]
// @Security     BearerAuth
func (c *ApprovalController) Decide(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateRecordID(ctx, id) {
		return
	}
	tier, ok := parseTier(ctx)
	if !ok {
		return
	}

	var req DecideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	ts, err := c.approvalService.Decide(ctx.Request.Context(), id, req.ProjectID, tier, &service.DecisionRequest{
		Approve: req.Approve,
		Reason:  req.Reason,
	})
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, ts)
}

// Pending 查询待办审批
// @Summary      待办审批列表
// @Description  返回当前操作人在指定层级的待办审批
// @Tags         审批管理
// @Produce      json
// @Param        tier query string true "审批层级" Enums(lead, manager, management)
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /approvals/pending [get]
// @Security     BearerAuth
func (c *ApprovalController) Pending(ctx *gin.Context) {
	tier := model.ApprovalTier(ctx.Query("tier"))
	switch tier {
	case model.TierLead, model.TierManager, model.TierManagement:
	default:
		Error(ctx, http.StatusBadRequest, "invalid approval tier", "tier must be lead, manager or management")
		return
	}

	actor, ok := auth.ActorFromContext(ctx.Request.Context())
	if !ok {
		Error(ctx, http.StatusUnauthorized, "unauthorized", "pending approvals require an authenticated actor")
		return
	}

	items, err := c.queryService.PendingApprovals(tier, actor.ID)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, items)
}
