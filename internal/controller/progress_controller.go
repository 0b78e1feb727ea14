package controller

import (
	"errors"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// ProgressController 完成记录与学习会话的API入口
type ProgressController struct {
	ProgressService *service.ProgressService
	StreakService   *service.StreakService
}

func NewProgressController(
	progressService *service.ProgressService,
	streakService *service.StreakService,
) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		StreakService:   streakService,
	}
}

// CompleteContentRequest 内容完成请求
// swagger:model CompleteContentRequest
type CompleteContentRequest struct {
	SubjectID uint              `json:"subjectId" binding:"required"`
	ModuleID  uint              `json:"moduleId"`
	ItemID    uint              `json:"itemId"`
	ItemType  model.ContentType `json:"itemType" binding:"required"`
	TimeSpent int               `json:"timeSpent" binding:"omitempty,min=0"`
}

// LogSessionRequest 学习会话上报
// swagger:model LogSessionRequest
type LogSessionRequest struct {
	SubjectID       uint              `json:"subjectId"`
	ModuleID        uint              `json:"moduleId"`
	ItemID          uint              `json:"itemId"`
	ItemType        model.ContentType `json:"itemType"`
	StartTime       time.Time         `json:"startTime"`
	EndTime         time.Time         `json:"endTime"`
	DurationMinutes int               `json:"durationMinutes" binding:"omitempty,min=0"`
	Notes           string            `json:"notes" binding:"omitempty,max=500"`
}

// CompleteContent godoc
// @Summary 标记内容项完成
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CompleteContentRequest true "完成请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/progress/complete [post]
func (c *ProgressController) CompleteContent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var request CompleteContentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.ProgressService.MarkContentComplete(
		user.UserID,
		request.SubjectID,
		request.ModuleID,
		request.ItemID,
		request.ItemType,
		request.TimeSpent,
	)
	if err != nil {
		if errors.Is(err, util.ErrContentNotFound) || errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// LogSession godoc
// @Summary 上报一次学习会话
// @Description 会话落库后同步评估今日连续学习天数
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body LogSessionRequest true "会话上报"
// @Success 200 {object} util.Response{data=service.StreakUpdate}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/progress/sessions [post]
func (c *ProgressController) LogSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var request LogSessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session := &model.StudySession{
		UserID:          user.UserID,
		SubjectID:       request.SubjectID,
		ModuleID:        request.ModuleID,
		ItemID:          request.ItemID,
		ItemType:        request.ItemType,
		StartTime:       request.StartTime,
		EndTime:         request.EndTime,
		DurationMinutes: request.DurationMinutes,
		Notes:           request.Notes,
	}

	if err := c.ProgressService.LogStudySession(session); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	// 会话结束后顺带评估连续天数，失败不影响上报结果
	update, err := c.StreakService.UpdateUserStreak(user.UserID)
	if err != nil {
		util.Success(ctx, nil)
		return
	}

	util.Success(ctx, update)
}
