package controller

import (
	"errors"
	"fmt"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// UserController 用户画像与学习偏好的API入口
type UserController struct {
	UserService    *service.UserService
	StorageService *service.StorageService
}

func NewUserController(userService *service.UserService, storageService *service.StorageService) *UserController {
	return &UserController{
		UserService:    userService,
		StorageService: storageService,
	}
}

// SetDeadlineRequest 设置考试日期请求
// swagger:model SetDeadlineRequest
type SetDeadlineRequest struct {
	Deadline string `json:"deadline" binding:"required"` // 格式 2006-01-02
}

// SelectPlanRequest 切换学习档位请求
// swagger:model SelectPlanRequest
type SelectPlanRequest struct {
	Plan          string `json:"plan" binding:"required"`
	CustomMinutes int    `json:"customMinutes" binding:"omitempty,min=1"`
}

// SelectSubjectsRequest 科目选择请求，全量替换
// swagger:model SelectSubjectsRequest
type SelectSubjectsRequest struct {
	Subjects []service.SubjectSelection `json:"subjects" binding:"required,dive"`
}

// SetPriorityRequest 调整科目优先级请求
// swagger:model SetPriorityRequest
type SetPriorityRequest struct {
	Priority int `json:"priority" binding:"required,min=1,max=10"`
}

// GetProfile godoc
// @Summary 个人资料
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response
// @Router /api/user/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.UserService.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetDeadline godoc
// @Summary 设置考试日期
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SetDeadlineRequest true "设置考试日期请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "日期格式错误或早于今天"
// @Router /api/user/deadline [put]
func (c *UserController) SetDeadline(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var request SetDeadlineRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	deadline, err := time.ParseInLocation("2006-01-02", request.Deadline, time.Local)
	if err != nil {
		util.BadRequest(ctx, "日期格式应为 2006-01-02")
		return
	}
	// 当天结束前都算有效
	deadline = deadline.Add(24*time.Hour - time.Second)

	if err := c.UserService.SetExamDeadline(claims.UserID, deadline); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, nil)
}

// SelectPlan godoc
// @Summary 切换学习档位
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SelectPlanRequest true "切换学习档位请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/user/plan [put]
func (c *UserController) SelectPlan(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var request SelectPlanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SelectPlan(claims.UserID, request.Plan, request.CustomMinutes); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, nil)
}

// SelectSubjects godoc
// @Summary 选择备考科目
// @Description 全量替换当前科目选择，未填优先级默认为5
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SelectSubjectsRequest true "科目选择请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/user/subjects [put]
func (c *UserController) SelectSubjects(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var request SelectSubjectsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SelectSubjects(claims.UserID, request.Subjects); err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetSubjects godoc
// @Summary 已选科目及优先级
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserSubject}
// @Router /api/user/subjects [get]
func (c *UserController) GetSubjects(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	subjects, err := c.UserService.GetUserSubjects(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// SetSubjectPriority godoc
// @Summary 调整科目优先级
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Param request body SetPriorityRequest true "调整优先级请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/user/subjects/{id}/priority [put]
func (c *UserController) SetSubjectPriority(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var request SetPriorityRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetSubjectPriority(claims.UserID, util.MustParseUint(ctx.Param("id")), request.Priority); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, nil)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "头像图片"
// @Success 200 {object} util.Response{data=map[string]string}
// @Failure 400 {object} util.Response
// @Router /api/user/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少图片文件")
		return
	}

	f, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	objectName := fmt.Sprintf("avatars/%d/%s", claims.UserID, file.Filename)
	url, err := c.StorageService.Upload(ctx.Request.Context(), objectName, f, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if err := c.UserService.UpdateAvatar(claims.UserID, url); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
