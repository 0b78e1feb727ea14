package service

import (
	"testing"
	"time"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateStudyPlans_Targets(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestScheduler(db)

	user := createTestUser(t, db, nil) // 考试日期 10 天后
	createTestSubject(t, db, "数学", 0, 1000, 1000, 1000)

	plan, err := svc.CalculateStudyPlans(user.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, plan.DaysRemaining)
	assert.Equal(t, 3000, plan.TotalRemainingMinutes)
	assert.Equal(t, 300, plan.DailyTargets.Minimum)
	assert.Equal(t, 360, plan.DailyTargets.Moderate)
	assert.Equal(t, 420, plan.DailyTargets.Maximum)
	// 未设置自定义档时默认 minimum+60
	assert.Equal(t, 360, plan.DailyTargets.Custom)

	// 四档目标已持久化
	stored, err := repos.user.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stored.TargetMinimum)
	assert.Equal(t, 360, stored.TargetModerate)
	assert.Equal(t, 420, stored.TargetMaximum)
	assert.Equal(t, 360, stored.TargetCustom)
}

func TestCalculateStudyPlans_FloorAndCustomClamp(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	createTestSubject(t, db, "逻辑", 0, 100)

	// 剩余量很小时最低档兜底 120 分钟
	user := createTestUser(t, db, nil)
	plan, err := svc.CalculateStudyPlans(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, plan.DailyTargets.Minimum)
	assert.Equal(t, 180, plan.DailyTargets.Moderate)
	assert.Equal(t, 240, plan.DailyTargets.Maximum)

	// 自定义档超过16小时被压到 960
	high := createTestUser(t, db, func(u *model.User) { u.TargetCustom = 2000 })
	plan, err = svc.CalculateStudyPlans(high.ID)
	require.NoError(t, err)
	assert.Equal(t, 960, plan.DailyTargets.Custom)

	// 自定义档低于最低档被抬到最低档
	low := createTestUser(t, db, func(u *model.User) { u.TargetCustom = 50 })
	plan, err = svc.CalculateStudyPlans(low.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.DailyTargets.Minimum, plan.DailyTargets.Custom)
}

func TestCalculateStudyPlans_NoDeadline(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) { u.ExamDeadline = nil })

	_, err := svc.CalculateStudyPlans(user.ID)
	assert.ErrorIs(t, err, util.ErrNoDeadline)
}

func TestGenerateSchedule_EmptySelection(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, nil)
	createTestSubject(t, db, "数学", 0, 300)

	// 未选择任何科目：返回空排期而非错误
	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	assert.NotNil(t, schedule)
	assert.Empty(t, schedule)
}

func TestGenerateSchedule_PriorityOrdering(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subjectA := createTestSubject(t, db, "数学", 0, 100, 100, 100)
	subjectB := createTestSubject(t, db, "英语", 0, 100, 100)
	selectSubject(t, db, user.ID, subjectA.ID, 8)
	selectSubject(t, db, user.ID, subjectB.ID, 3)

	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(schedule), 3)

	// 高优先级科目整体排在前面
	var lastA, firstB time.Time
	for _, day := range schedule {
		for _, e := range day.PlannedSessions {
			switch e.SubjectID {
			case subjectA.ID:
				if day.Date.After(lastA) {
					lastA = day.Date
				}
			case subjectB.ID:
				if firstB.IsZero() || day.Date.Before(firstB) {
					firstB = day.Date
				}
			}
		}
	}
	require.False(t, lastA.IsZero())
	require.False(t, firstB.IsZero())
	assert.True(t, lastA.Before(firstB), "数学(优先级8)应全部排在英语(优先级3)之前")
}

func TestGenerateSchedule_SoftCapAndOversizedItem(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subject := createTestSubject(t, db, "专业课", 0, 100, 90, 500)
	selectSubject(t, db, user.ID, subject.ID, 5)

	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Len(t, schedule, 2)

	// 190 <= 180*1.1，两项同天
	assert.Equal(t, 190, schedule[0].TotalPlannedDuration)
	assert.Len(t, schedule[0].PlannedSessions, 2)

	// 超大项作为当天第一项不受软上限约束
	assert.Equal(t, 500, schedule[1].TotalPlannedDuration)
	assert.Len(t, schedule[1].PlannedSessions, 1)
}

func TestGenerateSchedule_SubjectSwitchEarlyStop(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subjectA := createTestSubject(t, db, "数学", 0, 130)
	subjectB := createTestSubject(t, db, "英语", 0, 40)
	selectSubject(t, db, user.ID, subjectA.ID, 8)
	selectSubject(t, db, user.ID, subjectB.ID, 3)

	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Len(t, schedule, 2)

	// 已学 130 超过目标 70%，不再跨科目塞英语
	assert.Len(t, schedule[0].PlannedSessions, 1)
	assert.Equal(t, subjectA.ID, schedule[0].PlannedSessions[0].SubjectID)
	assert.Equal(t, subjectB.ID, schedule[1].PlannedSessions[0].SubjectID)
}

func TestGenerateSchedule_PYQSplit(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subject := createTestSubject(t, db, "数学", 550)
	selectSubject(t, db, user.ID, subject.ID, 5)

	// 550 题 → 估算 1524 分钟 → 9 段，每段 170 分钟
	assert.Equal(t, 1524, pyqEstimatedDuration(subject))

	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Len(t, schedule, 9)

	for i, day := range schedule {
		require.Len(t, day.PlannedSessions, 1)
		e := day.PlannedSessions[0]
		assert.Equal(t, model.ContentPYQ, e.ItemType)
		assert.Equal(t, uint(i+1), e.ItemID)
		assert.Equal(t, 170, e.DurationMinutes)
		assert.Equal(t, "历年真题", e.ModuleName)
	}
	assert.Equal(t, "真题训练 1/9", schedule[0].PlannedSessions[0].Name)
}

func TestGenerateSchedule_SkipsCompletedContent(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subject := createTestSubject(t, db, "数学", 0, 100, 100)
	selectSubject(t, db, user.ID, subject.ID, 5)

	full, err := repos.subject.FindByID(subject.ID)
	require.NoError(t, err)
	first := full.Modules[0].Items[0]

	now := time.Now()
	require.NoError(t, repos.progress.Upsert(&model.ContentProgress{
		UserID:      user.ID,
		SubjectID:   subject.ID,
		ModuleID:    first.ModuleID,
		ItemID:      first.ID,
		ItemType:    first.Type,
		Completed:   true,
		CompletedAt: &now,
		TimeSpent:   100,
	}))

	schedule, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	require.Len(t, schedule[0].PlannedSessions, 1)
	assert.NotEqual(t, first.ID, schedule[0].PlannedSessions[0].ItemID)
}

func TestGenerateSchedule_RegenerateWithoutDuplicates(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subject := createTestSubject(t, db, "数学", 0, 100, 100, 100)
	selectSubject(t, db, user.ID, subject.ID, 5)

	first, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	second, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))

	var count int64
	require.NoError(t, db.Model(&model.ScheduleEntry{}).Where("user_id = ?", user.ID).Count(&count).Error)

	expected := 0
	for _, day := range second {
		expected += len(day.PlannedSessions)
	}
	assert.Equal(t, int64(expected), count, "重复生成不产生重复条目")
}

func TestGenerateSchedule_Busy(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, nil)
	require.True(t, svc.Locks.Acquire(user.ID))

	_, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.Error(t, err)
	assert.True(t, util.IsScheduleBusy(err))

	_, err = svc.CalculateStudyPlans(user.ID)
	assert.True(t, util.IsScheduleBusy(err))
}

func TestGetSchedule_AggregatesByDay(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	user := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	subject := createTestSubject(t, db, "数学", 0, 100, 90, 100)
	selectSubject(t, db, user.ID, subject.ID, 5)

	generated, err := svc.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)

	fetched, err := svc.GetSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	require.Len(t, fetched, len(generated))

	for i := range generated {
		assert.Equal(t, generated[i].TotalPlannedDuration, fetched[i].TotalPlannedDuration)
		assert.Len(t, fetched[i].PlannedSessions, len(generated[i].PlannedSessions))
	}
}

func TestCompleteScheduleEntry(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestScheduler(db)

	owner := createTestUser(t, db, func(u *model.User) {
		u.SelectedPlan = model.PlanCustom
		u.TargetCustom = 180
	})
	other := createTestUser(t, db, nil)
	subject := createTestSubject(t, db, "数学", 0, 100)
	selectSubject(t, db, owner.ID, subject.ID, 5)

	_, err := svc.GenerateSchedule(owner.ID, time.Now(), 30)
	require.NoError(t, err)

	var persisted model.ScheduleEntry
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&persisted).Error)

	// 只能操作自己的条目
	assert.ErrorIs(t, svc.CompleteScheduleEntry(other.ID, persisted.ID), util.ErrPermissionDenied)
	assert.ErrorIs(t, svc.CompleteScheduleEntry(owner.ID, 9999), util.ErrEntryNotFound)

	require.NoError(t, svc.CompleteScheduleEntry(owner.ID, persisted.ID))

	fetched, err := svc.GetSchedule(owner.ID, time.Now(), 30)
	require.NoError(t, err)
	assert.Equal(t, 100, fetched[0].TotalCompletedDuration)
}

func TestResolveDailyTarget_Fallbacks(t *testing.T) {
	targets := DailyTargets{Minimum: 120, Moderate: 180, Maximum: 240, Custom: 300}

	assert.Equal(t, 120, resolveDailyTarget(model.PlanMinimum, targets))
	assert.Equal(t, 180, resolveDailyTarget(model.PlanModerate, targets))
	assert.Equal(t, 240, resolveDailyTarget(model.PlanMaximum, targets))
	assert.Equal(t, 300, resolveDailyTarget(model.PlanCustom, targets))

	// 无效档位依次回退 moderate → minimum → 120
	assert.Equal(t, 180, resolveDailyTarget("unknown", targets))
	assert.Equal(t, 120, resolveDailyTarget("unknown", DailyTargets{Minimum: 120}))
	assert.Equal(t, 120, resolveDailyTarget("unknown", DailyTargets{}))
}
