package service

import (
	"fmt"
	"testing"
	"time"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/pkg/database"
	"studyplanner_backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

type testRepos struct {
	user     *repository.UserRepository
	subject  *repository.SubjectRepository
	progress *repository.ProgressRepository
	schedule *repository.ScheduleRepository
	session  *repository.StudySessionRepository
}

func newTestRepos(db *gorm.DB) *testRepos {
	return &testRepos{
		user:     repository.NewUserRepository(db),
		subject:  repository.NewSubjectRepository(db),
		progress: repository.NewProgressRepository(db),
		schedule: repository.NewScheduleRepository(db),
		session:  repository.NewStudySessionRepository(db),
	}
}

func newTestScheduler(db *gorm.DB) (*SchedulerService, *testRepos) {
	repos := newTestRepos(db)
	svc := NewSchedulerService(repos.user, repos.subject, repos.progress, repos.schedule, NewScheduleLockManager(), 30)
	return svc, repos
}

func createTestUser(t *testing.T, db *gorm.DB, mutate func(*model.User)) *model.User {
	t.Helper()

	deadline := time.Now().Add(10 * 24 * time.Hour)
	user := &model.User{
		Name:         "考生",
		Email:        uuid.NewString() + "@test.local",
		Password:     "hashed",
		ExamDeadline: &deadline,
		SelectedPlan: model.PlanModerate,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createTestSubject 建一个科目，每个时长对应"基础"章节下的一节录播课
func createTestSubject(t *testing.T, db *gorm.DB, name string, pyqCount int, durations ...int) *model.Subject {
	t.Helper()

	subject := &model.Subject{Name: name, PYQCount: pyqCount}
	require.NoError(t, db.Create(subject).Error)

	if len(durations) > 0 {
		module := &model.SubjectModule{SubjectID: subject.ID, Name: name + "基础"}
		require.NoError(t, db.Create(module).Error)
		for i, d := range durations {
			item := &model.ContentItem{
				ModuleID:        module.ID,
				Type:            model.ContentLecture,
				Name:            fmt.Sprintf("%s第%d讲", name, i+1),
				DurationMinutes: d,
				Position:        i,
			}
			require.NoError(t, db.Create(item).Error)
		}
	}
	return subject
}

func selectSubject(t *testing.T, db *gorm.DB, userID, subjectID uint, priority int) {
	t.Helper()
	require.NoError(t, db.Create(&model.UserSubject{
		UserID:    userID,
		SubjectID: subjectID,
		Priority:  priority,
	}).Error)
}

func addSession(t *testing.T, db *gorm.DB, userID uint, start time.Time, minutes int) {
	t.Helper()
	require.NoError(t, db.Create(&model.StudySession{
		UserID:          userID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
	}).Error)
}
