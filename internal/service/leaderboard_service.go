package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	TimeframeDaily   = "daily"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
	TimeframeOverall = "overall"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardEntry 排行榜一行
// swagger:model LeaderboardEntry
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	UserID          uint   `json:"userId"`
	Name            string `json:"name"`
	Streak          int    `json:"streak"`
	TotalStudyTime  int    `json:"totalStudyTime"`  // 分钟
	TotalStudyHours int    `json:"totalStudyHours"` // floor(分钟/60)
}

// LeaderboardService 按时间窗口聚合学习记录生成排行榜。
// overall 按 (连续天数, 累计时长) 排序；窗口视图只按窗口内学习时长
// 排序，连续天数仅展示——这一不对称沿自产品设定，勿合并。
type LeaderboardService struct {
	UserRepo    *repository.UserRepository
	SessionRepo *repository.StudySessionRepository
	Redis       *redis.Client
	CacheTTL    time.Duration
}

func NewLeaderboardService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.StudySessionRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
) *LeaderboardService {
	return &LeaderboardService{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Redis:       rdb,
		CacheTTL:    cacheTTL,
	}
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit int, timeframe string) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	switch timeframe {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeOverall:
	default:
		timeframe = TimeframeOverall
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", timeframe, limit)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	var entries []LeaderboardEntry
	var err error
	if timeframe == TimeframeOverall {
		entries, err = s.overallLeaderboard(limit)
	} else {
		entries, err = s.windowedLeaderboard(limit, timeframe)
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, data, s.CacheTTL).Err(); err != nil {
				logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}

	return entries, nil
}

func (s *LeaderboardService) overallLeaderboard(limit int) ([]LeaderboardEntry, error) {
	users, err := s.UserRepo.FindTopByStreak(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:            i + 1,
			UserID:          u.ID,
			Name:            u.Name,
			Streak:          u.Streak,
			TotalStudyTime:  u.TotalStudyTime,
			TotalStudyHours: u.TotalStudyTime / 60,
		})
	}
	return entries, nil
}

func (s *LeaderboardService) windowedLeaderboard(limit int, timeframe string) ([]LeaderboardEntry, error) {
	today := util.StartOfDay(time.Now())
	var since time.Time
	switch timeframe {
	case TimeframeDaily:
		since = today
	case TimeframeWeekly:
		since = today.AddDate(0, 0, -7)
	case TimeframeMonthly:
		since = today.AddDate(0, 0, -30)
	}

	totals, err := s.SessionRepo.SumDurationByUserSince(since)
	if err != nil {
		return nil, err
	}
	users, err := s.UserRepo.FindAll()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		minutes := totals[u.ID]
		entries = append(entries, LeaderboardEntry{
			UserID:          u.ID,
			Name:            u.Name,
			Streak:          u.Streak,
			TotalStudyTime:  minutes,
			TotalStudyHours: minutes / 60,
		})
	}

	// 窗口视图只按窗口内学习时长排序，同分按用户ID保证稳定
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalStudyTime != entries[j].TotalStudyTime {
			return entries[i].TotalStudyTime > entries[j].TotalStudyTime
		}
		return entries[i].UserID < entries[j].UserID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
