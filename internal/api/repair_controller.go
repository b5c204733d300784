package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/service"
)

// RepairController 维护修复控制器
// 仅限管理员角色;所有程序幂等,可按需或定期触发
type RepairController struct {
	repairService service.RepairService
}

// NewRepairController 创建维护修复控制器
func NewRepairController(repairService service.RepairService) *RepairController {
	return &RepairController{
		repairService: repairService,
	}
}

// RunAll 执行全部修复程序
// @Summary      执行全部修复程序
// @Description  按固定顺序执行孤儿清理、审批补建、自审批修正和冻结一致性
// @Tags         维护修复
// @Produce      json
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/repair/run [post]
// @Security     BearerAuth
func (c *RepairController) RunAll(ctx *gin.Context) {
	results, err := c.repairService.RunAll(ctx.Request.Context())
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, results)
}

// RunOne 执行指定修复程序
// @Summary      执行指定修复程序
// @Description  单独触发某个修复程序
// @Tags         维护修复
// @Produce      json
// @Param        procedure path string true "程序名称" Enums(orphan_cleanup, missing_approval_backfill, manager_self_approval_correction, freeze_consistency)
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/repair/{procedure} [post]
// @Security     BearerAuth
func (c *RepairController) RunOne(ctx *gin.Context) {
	var result *service.RepairResult
	var err error

	switch ctx.Param("procedure") {
	case "orphan_cleanup":
		result, err = c.repairService.OrphanCleanup(ctx.Request.Context())
	case "missing_approval_backfill":
		result, err = c.repairService.BackfillMissingApprovals(ctx.Request.Context())
	case "manager_self_approval_correction":
		result, err = c.repairService.CorrectManagerSelfApproval(ctx.Request.Context())
	case "freeze_consistency":
		result, err = c.repairService.EnforceFreezeConsistency(ctx.Request.Context())
	default:
		Error(ctx, http.StatusBadRequest, "unknown repair procedure", "see /admin/repair/run for the full set")
		return
	}
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, result)
}
