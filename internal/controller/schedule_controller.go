package controller

import (
	"errors"
	"net/http"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// ScheduleController 排期引擎的API入口
type ScheduleController struct {
	SchedulerService *service.SchedulerService
}

func NewScheduleController(schedulerService *service.SchedulerService) *ScheduleController {
	return &ScheduleController{SchedulerService: schedulerService}
}

// GenerateScheduleRequest 排期生成请求
// swagger:model GenerateScheduleRequest
type GenerateScheduleRequest struct {
	StartDate string `json:"startDate" binding:"omitempty"` // 2006-01-02，缺省今天
	Days      int    `json:"days" binding:"omitempty,min=1,max=365"`
}

// CalculatePlans godoc
// @Summary 计算四档每日学习目标
// @Tags 排期
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StudyPlan}
// @Failure 400 {object} util.Response "未设置考试日期"
// @Failure 409 {object} util.Response "排期正在生成中"
// @Router /api/schedule/plans [post]
func (c *ScheduleController) CalculatePlans(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	plan, err := c.SchedulerService.CalculateStudyPlans(user.UserID)
	if err != nil {
		c.writeScheduleError(ctx, err)
		return
	}

	util.Success(ctx, plan)
}

// Generate godoc
// @Summary 生成逐日学习排期
// @Description 从 startDate 起最多 days 天；未选择科目时返回空结果
// @Tags 排期
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body GenerateScheduleRequest true "排期生成请求"
// @Success 200 {object} util.Response{data=[]service.DaySchedule}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "排期正在生成中"
// @Router /api/schedule/generate [post]
func (c *ScheduleController) Generate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var request GenerateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	startDate := time.Now()
	if request.StartDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", request.StartDate, time.Local)
		if err != nil {
			util.BadRequest(ctx, "开始日期格式无效，应为 2006-01-02")
			return
		}
		startDate = parsed
	}

	schedule, err := c.SchedulerService.GenerateSchedule(user.UserID, startDate, request.Days)
	if err != nil {
		c.writeScheduleError(ctx, err)
		return
	}

	util.Success(ctx, schedule)
}

// GetSchedule godoc
// @Summary 查询已生成的排期
// @Tags 排期
// @Produce json
// @Security ApiKeyAuth
// @Param from query string false "起始日期 2006-01-02，缺省今天"
// @Param days query int false "查询天数，缺省30"
// @Success 200 {object} util.Response{data=[]service.DaySchedule}
// @Router /api/schedule [get]
func (c *ScheduleController) GetSchedule(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	from := time.Now()
	if fromStr := ctx.Query("from"); fromStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			util.BadRequest(ctx, "起始日期格式无效，应为 2006-01-02")
			return
		}
		from = parsed
	}
	days := int(util.MustParseUint(ctx.DefaultQuery("days", "30")))

	schedule, err := c.SchedulerService.GetSchedule(user.UserID, from, days)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, schedule)
}

// CompleteEntry godoc
// @Summary 标记一条排期完成
// @Tags 排期
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "排期条目ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "条目不属于当前用户"
// @Failure 404 {object} util.Response "条目不存在"
// @Router /api/schedule/entries/{id}/complete [put]
func (c *ScheduleController) CompleteEntry(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.SchedulerService.CompleteScheduleEntry(user.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		c.writeScheduleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

func (c *ScheduleController) writeScheduleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound), errors.Is(err, util.ErrEntryNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrNoDeadline):
		util.BadRequest(ctx, err.Error())
	case util.IsScheduleBusy(err):
		util.Error(ctx, http.StatusConflict, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
