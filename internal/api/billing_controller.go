package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/service"
)

// BillingController 计费聚合控制器
type BillingController struct {
	billingService service.BillingService
}

// NewBillingController 创建计费聚合控制器
func NewBillingController(billingService service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
	}
}

// Aggregate 计费聚合
// @Summary      计费聚合
// @Description  对已冻结工时单按 (项目, 用户) 汇总计费工时和金额
// @Tags         计费
// @Produce      json
// @Param        from       query string false "条目日期下界(YYYY-MM-DD)"
// @Param        to         query string false "条目日期上界(YYYY-MM-DD)"
// @Param        project_id query string false "项目 ID"
// @Param        user_id    query string false "用户 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /billing/aggregate [get]
// @Security     BearerAuth
func (c *BillingController) Aggregate(ctx *gin.Context) {
	filter := &service.BillingFilter{
		ProjectID: ctx.Query("project_id"),
		UserID:    ctx.Query("user_id"),
	}
	if from := ctx.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", "from must be in YYYY-MM-DD format")
			return
		}
		filter.From = t
	}
	if to := ctx.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", "to must be in YYYY-MM-DD format")
			return
		}
		filter.To = t
	}

	lines, err := c.billingService.Aggregate(ctx.Request.Context(), filter)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	Success(ctx, lines)
}
