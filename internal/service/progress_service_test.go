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

func newTestProgress(db *gorm.DB) (*ProgressService, *testRepos) {
	repos := newTestRepos(db)
	return NewProgressService(repos.user, repos.subject, repos.progress, repos.session), repos
}

func TestMarkContentComplete(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestProgress(db)

	user := createTestUser(t, db, nil)
	subject := createTestSubject(t, db, "数学", 0, 90)

	full, err := repos.subject.FindByID(subject.ID)
	require.NoError(t, err)
	item := full.Modules[0].Items[0]

	require.NoError(t, svc.MarkContentComplete(user.ID, subject.ID, item.ModuleID, item.ID, item.Type, 90))

	records, err := repos.progress.FindByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Completed)
	assert.Equal(t, 90, records[0].TimeSpent)

	stored, err := repos.user.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, stored.TotalStudyTime)

	// 重复标记覆盖而不是新增
	require.NoError(t, svc.MarkContentComplete(user.ID, subject.ID, item.ModuleID, item.ID, item.Type, 95))
	records, err = repos.progress.FindByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 95, records[0].TimeSpent)
}

func TestMarkContentComplete_ValidatesItem(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestProgress(db)

	user := createTestUser(t, db, nil)
	subject := createTestSubject(t, db, "数学", 0, 90)

	err := svc.MarkContentComplete(user.ID, subject.ID, 1, 9999, model.ContentLecture, 30)
	assert.ErrorIs(t, err, util.ErrContentNotFound)

	err = svc.MarkContentComplete(9999, subject.ID, 1, 1, model.ContentLecture, 30)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestMarkContentComplete_WholePYQ(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestProgress(db)

	user := createTestUser(t, db, nil)
	subject := createTestSubject(t, db, "数学", 550)

	// 整块真题的完成键固定为 (ModuleID=0, ItemID=0, Type=pyq)，无需校验内容项
	require.NoError(t, svc.MarkContentComplete(user.ID, subject.ID, 0, 0, model.ContentPYQ, 0))

	records, err := repos.progress.FindByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ContentPYQ, records[0].ItemType)
	assert.Equal(t, uint(0), records[0].ItemID)

	// 整块真题完成后不再进入排期
	sched, _ := newTestScheduler(db)
	selectSubject(t, db, user.ID, subject.ID, 5)
	schedule, err := sched.GenerateSchedule(user.ID, time.Now(), 30)
	require.NoError(t, err)
	assert.Empty(t, schedule)
}

func TestLogStudySession_Normalization(t *testing.T) {
	db := newTestDB(t)
	svc, repos := newTestProgress(db)

	user := createTestUser(t, db, nil)

	// 只给时长：起止时间自动补齐
	session := &model.StudySession{UserID: user.ID, DurationMinutes: 45}
	require.NoError(t, svc.LogStudySession(session))
	assert.False(t, session.StartTime.IsZero())
	assert.Equal(t, session.StartTime.Add(45*time.Minute), session.EndTime)

	// 只给起止时间：时长按差值推算
	start := time.Now().Add(-30 * time.Minute)
	session = &model.StudySession{UserID: user.ID, StartTime: start, EndTime: start.Add(30 * time.Minute)}
	require.NoError(t, svc.LogStudySession(session))
	assert.Equal(t, 30, session.DurationMinutes)

	stored, err := repos.user.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.TotalStudyTime)
}

func TestLogStudySession_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestProgress(db)

	err := svc.LogStudySession(&model.StudySession{UserID: 9999, DurationMinutes: 10})
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
