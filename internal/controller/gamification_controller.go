package controller

import (
	"errors"
	"strconv"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GamificationController 连续学习天数与排行榜的API入口
type GamificationController struct {
	StreakService      *service.StreakService
	LeaderboardService *service.LeaderboardService
}

func NewGamificationController(
	streakService *service.StreakService,
	leaderboardService *service.LeaderboardService,
) *GamificationController {
	return &GamificationController{
		StreakService:      streakService,
		LeaderboardService: leaderboardService,
	}
}

// UpdateStreak godoc
// @Summary 评估今日学习目标并更新连续天数
// @Description 学习会话结束后由客户端触发
// @Tags 激励
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StreakUpdate}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/streak/update [post]
func (c *GamificationController) UpdateStreak(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	update, err := c.StreakService.UpdateUserStreak(user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, update)
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Tags 激励
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "返回条数，缺省10，上限100"
// @Param timeframe query string false "daily/weekly/monthly/overall，缺省overall"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *GamificationController) GetLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	timeframe := ctx.DefaultQuery("timeframe", service.TimeframeOverall)

	entries, err := c.LeaderboardService.GetLeaderboard(ctx.Request.Context(), limit, timeframe)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}
