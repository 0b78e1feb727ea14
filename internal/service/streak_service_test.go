package service

import (
	"testing"
	"time"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStreak(db *gorm.DB) (*StreakService, *testRepos) {
	repos := newTestRepos(db)
	return NewStreakService(repos.user, repos.session, repos.progress), repos
}

func TestUpdateUserStreak_TargetMet(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestStreak(db)

	user := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })
	addSession(t, db, user.ID, time.Now(), 100)

	update, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)

	assert.True(t, update.Maintained)
	assert.Equal(t, 1, update.Streak)
	assert.InDelta(t, 100.0, update.Percentage, 0.01)
}

func TestUpdateUserStreak_EightyPercentThreshold(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestStreak(db)

	// 79% 未达标
	under := createTestUser(t, db, func(u *model.User) {
		u.TargetModerate = 100
		u.Streak = 3
	})
	addSession(t, db, under.ID, time.Now(), 79)

	update, err := svc.UpdateUserStreak(under.ID)
	require.NoError(t, err)
	assert.False(t, update.Maintained)
	assert.Equal(t, 3, update.Streak, "未达标时连续天数保持原值")

	stored, err := repos.user.FindByID(under.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastStreakDate, "未达标不写库")

	// 恰好 80% 达标
	exact := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })
	addSession(t, db, exact.ID, time.Now(), 80)

	update, err = svc.UpdateUserStreak(exact.ID)
	require.NoError(t, err)
	assert.True(t, update.Maintained)
}

func TestUpdateUserStreak_IncrementsFromYesterday(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestStreak(db)

	yesterday := util.StartOfDay(time.Now()).AddDate(0, 0, -1)
	user := createTestUser(t, db, func(u *model.User) {
		u.TargetModerate = 100
		u.Streak = 4
		u.LastStreakDate = &yesterday
	})
	addSession(t, db, user.ID, time.Now(), 120)

	update, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, update.Streak)
}

func TestUpdateUserStreak_SameDayIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestStreak(db)

	user := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })
	addSession(t, db, user.ID, time.Now(), 150)

	first, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)
	second, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Streak, second.Streak, "同日重复结算幂等")
	assert.True(t, second.Maintained)
}

func TestUpdateUserStreak_GapResetsToOne(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestStreak(db)

	threeDaysAgo := util.StartOfDay(time.Now()).AddDate(0, 0, -3)
	user := createTestUser(t, db, func(u *model.User) {
		u.TargetModerate = 100
		u.Streak = 10
		u.LastStreakDate = &threeDaysAgo
	})
	addSession(t, db, user.ID, time.Now(), 120)

	update, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, update.Streak, "中断后从1重新开始")
}

func TestUpdateUserStreak_TakesMaxOfSources(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestStreak(db)

	user := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })

	// 会话记了 50 分钟，完成记录记了 90 分钟：取较大者而非相加
	addSession(t, db, user.ID, time.Now(), 50)
	now := time.Now()
	require.NoError(t, repos.progress.Upsert(&model.ContentProgress{
		UserID:      user.ID,
		SubjectID:   1,
		ModuleID:    1,
		ItemID:      1,
		ItemType:    model.ContentLecture,
		Completed:   true,
		CompletedAt: &now,
		TimeSpent:   90,
	}))

	update, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)
	assert.True(t, update.Maintained)
	assert.InDelta(t, 90.0, update.Percentage, 0.01)
}

func TestUpdateUserStreak_DefaultTarget(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestStreak(db)

	// 档位目标未设置时默认120分钟
	user := createTestUser(t, db, nil)
	addSession(t, db, user.ID, time.Now(), 96) // 96/120 = 80%

	update, err := svc.UpdateUserStreak(user.ID)
	require.NoError(t, err)
	assert.True(t, update.Maintained)
}

func TestEvaluateAll_CoversActiveUsers(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestStreak(db)

	active := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })
	idle := createTestUser(t, db, func(u *model.User) { u.TargetModerate = 100 })
	addSession(t, db, active.ID, time.Now(), 120)

	require.NoError(t, svc.EvaluateAll())

	stored, err := repos.user.FindByID(active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Streak)

	untouched, err := repos.user.FindByID(idle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, untouched.Streak)
	assert.Nil(t, untouched.LastStreakDate)
}
