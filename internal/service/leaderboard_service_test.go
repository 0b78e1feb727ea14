package service

import (
	"context"
	"testing"
	"time"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLeaderboard(db *gorm.DB) (*LeaderboardService, *testRepos) {
	repos := newTestRepos(db)
	return NewLeaderboardService(repos.user, repos.session, nil, 30*time.Second), repos
}

func TestGetLeaderboard_OverallOrdering(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestLeaderboard(db)

	first := createTestUser(t, db, func(u *model.User) {
		u.Streak = 10
		u.TotalStudyTime = 600
	})
	second := createTestUser(t, db, func(u *model.User) {
		u.Streak = 10
		u.TotalStudyTime = 500
	})
	third := createTestUser(t, db, func(u *model.User) {
		u.Streak = 3
		u.TotalStudyTime = 9000
	})

	entries, err := svc.GetLeaderboard(context.Background(), 10, TimeframeOverall)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// 总榜先比连续天数，同分再比累计时长
	assert.Equal(t, first.ID, entries[0].UserID)
	assert.Equal(t, second.ID, entries[1].UserID)
	assert.Equal(t, third.ID, entries[2].UserID)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 3, entries[2].Rank)
	assert.Equal(t, 10, entries[0].TotalStudyHours) // floor(600/60)
}

func TestGetLeaderboard_WeeklyWindow(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestLeaderboard(db)

	today := util.StartOfDay(time.Now())

	// 连续天数很高但窗口内没学习：窗口榜只看窗口内时长
	veteran := createTestUser(t, db, func(u *model.User) {
		u.Streak = 50
		u.TotalStudyTime = 10000
	})
	addSession(t, db, veteran.ID, today.AddDate(0, 0, -10), 500)

	sprinter := createTestUser(t, db, func(u *model.User) { u.Streak = 1 })
	addSession(t, db, sprinter.ID, today.AddDate(0, 0, -2), 125)

	entries, err := svc.GetLeaderboard(context.Background(), 10, TimeframeWeekly)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, sprinter.ID, entries[0].UserID)
	assert.Equal(t, 125, entries[0].TotalStudyTime)
	assert.Equal(t, 2, entries[0].TotalStudyHours) // floor(125/60)
	assert.Equal(t, 50, entries[1].Streak, "连续天数仅展示，不参与窗口榜排序")
	assert.Equal(t, 0, entries[1].TotalStudyTime, "窗口外的学习不计入")
}

func TestGetLeaderboard_DailyWindowExcludesYesterday(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestLeaderboard(db)

	today := util.StartOfDay(time.Now())

	user := createTestUser(t, db, nil)
	addSession(t, db, user.ID, today.AddDate(0, 0, -1).Add(12*time.Hour), 300)
	addSession(t, db, user.ID, today.Add(8*time.Hour), 45)

	entries, err := svc.GetLeaderboard(context.Background(), 10, TimeframeDaily)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 45, entries[0].TotalStudyTime)
}

func TestGetLeaderboard_TieBreakByUserID(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestLeaderboard(db)

	today := util.StartOfDay(time.Now())
	a := createTestUser(t, db, nil)
	b := createTestUser(t, db, nil)
	addSession(t, db, a.ID, today, 60)
	addSession(t, db, b.ID, today, 60)

	entries, err := svc.GetLeaderboard(context.Background(), 10, TimeframeWeekly)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 同分按用户ID升序，保证结果稳定
	assert.Equal(t, a.ID, entries[0].UserID)
	assert.Equal(t, b.ID, entries[1].UserID)
}

func TestGetLeaderboard_LimitAndDefaults(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestLeaderboard(db)

	for i := 0; i < 12; i++ {
		createTestUser(t, db, func(u *model.User) { u.Streak = i })
	}

	// limit<=0 回落到默认10
	entries, err := svc.GetLeaderboard(context.Background(), 0, TimeframeOverall)
	require.NoError(t, err)
	assert.Len(t, entries, 10)

	// 非法 timeframe 回落到总榜
	entries, err = svc.GetLeaderboard(context.Background(), 5, "lifetime")
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Equal(t, 11, entries[0].Streak)
}
