package service

import (
	"context"
	"strings"
	"testing"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestContent(db *gorm.DB) *ContentService {
	return NewContentService(repository.NewSubjectRepository(db), nil)
}

func TestCreateSubject_PYQDuration(t *testing.T) {
	db := newTestDB(t)
	svc := newTestContent(db)

	subject, err := svc.CreateSubject("数学", 550)
	require.NoError(t, err)
	assert.Equal(t, 1524, subject.PYQDuration) // ceil(550 * 2.76923076923)

	subject, err = svc.CreateSubject("逻辑", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, subject.PYQDuration)
}

func TestAddContentItem_TypeValidationAndPosition(t *testing.T) {
	db := newTestDB(t)
	svc := newTestContent(db)

	subject, err := svc.CreateSubject("数学", 0)
	require.NoError(t, err)
	module, err := svc.AddModule(subject.ID, "代数")
	require.NoError(t, err)

	first, err := svc.AddContentItem(module.ID, model.ContentLecture, "第一讲", 60)
	require.NoError(t, err)
	second, err := svc.AddContentItem(module.ID, model.ContentQuiz, "小测", 30)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	// 真题不是内容项，通过科目的 PYQCount 表达
	_, err = svc.AddContentItem(module.ID, model.ContentPYQ, "真题", 100)
	assert.Error(t, err)

	_, err = svc.AddContentItem(9999, model.ContentLecture, "第一讲", 60)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestImportCatalogCSV(t *testing.T) {
	db := newTestDB(t)
	svc := newTestContent(db)

	csvData := strings.Join([]string{
		"科目,章节,类型,名称,时长分钟",
		"数学,代数,lecture,第一讲,60",
		"数学,代数,quiz,代数小测,30",
		"数学,几何,lecture,第二讲,45",
		"数学,,pyq,历年真题,550",
		"英语,阅读,homework,阅读作业,40",
	}, "\n")

	imported, err := svc.ImportCatalogCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 5, imported)

	subjects, err := svc.ListSubjects()
	require.NoError(t, err)
	require.Len(t, subjects, 2)

	var math *model.Subject
	for i := range subjects {
		if subjects[i].Name == "数学" {
			math = &subjects[i]
		}
	}
	require.NotNil(t, math)
	assert.Equal(t, 550, math.PYQCount)
	assert.Equal(t, 1524, math.PYQDuration)

	full, err := svc.GetSubject(math.ID)
	require.NoError(t, err)
	require.Len(t, full.Modules, 2)
	assert.Len(t, full.Modules[0].Items, 2)
	assert.Len(t, full.Modules[1].Items, 1)
}

func TestImportCatalogCSV_InvalidRows(t *testing.T) {
	db := newTestDB(t)
	svc := newTestContent(db)

	// 非表头行的时长必须是数字
	_, err := svc.ImportCatalogCSV(context.Background(), strings.NewReader(
		"数学,代数,lecture,第一讲,60\n数学,代数,lecture,第二讲,abc"))
	assert.Error(t, err)

	// 未知内容类型
	_, err = svc.ImportCatalogCSV(context.Background(), strings.NewReader(
		"数学,代数,video,第一讲,60"))
	assert.Error(t, err)
}

func TestUpdatePYQCount(t *testing.T) {
	db := newTestDB(t)
	svc := newTestContent(db)

	subject, err := svc.CreateSubject("数学", 100)
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePYQCount(subject.ID, 200))
	updated, err := svc.GetSubject(subject.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, updated.PYQCount)
	assert.Equal(t, 554, updated.PYQDuration) // ceil(200 * 2.76923076923)

	assert.ErrorIs(t, svc.UpdatePYQCount(9999, 10), util.ErrSubjectNotFound)
}
