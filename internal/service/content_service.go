package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// ContentService 内容目录的管理入口：科目/章节/内容项维护、
// CSV 批量导入、录播课视频上传与时长探测。
type ContentService struct {
	SubjectRepo *repository.SubjectRepository
	Storage     *StorageService
}

func NewContentService(subjectRepo *repository.SubjectRepository, storage *StorageService) *ContentService {
	return &ContentService{
		SubjectRepo: subjectRepo,
		Storage:     storage,
	}
}

func (s *ContentService) ListSubjects() ([]model.Subject, error) {
	return s.SubjectRepo.FindAll()
}

func (s *ContentService) GetSubject(id uint) (*model.Subject, error) {
	subject, err := s.SubjectRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	return subject, nil
}

// CreateSubject 新建科目，真题时长按题量推算
func (s *ContentService) CreateSubject(name string, pyqCount int) (*model.Subject, error) {
	subject := &model.Subject{
		Name:        name,
		PYQCount:    pyqCount,
		PYQDuration: int(math.Ceil(float64(pyqCount) * model.PYQMinutesPerQuestion)),
	}
	if err := s.SubjectRepo.Create(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

// UpdatePYQCount 调整科目真题题量并同步估算时长
func (s *ContentService) UpdatePYQCount(subjectID uint, count int) error {
	subject, err := s.GetSubject(subjectID)
	if err != nil {
		return err
	}
	subject.PYQCount = count
	subject.PYQDuration = int(math.Ceil(float64(count) * model.PYQMinutesPerQuestion))
	return s.SubjectRepo.Update(subject)
}

func (s *ContentService) DeleteSubject(id uint) error {
	if _, err := s.GetSubject(id); err != nil {
		return err
	}
	return s.SubjectRepo.Delete(id)
}

func (s *ContentService) AddModule(subjectID uint, name string) (*model.SubjectModule, error) {
	subject, err := s.GetSubject(subjectID)
	if err != nil {
		return nil, err
	}

	module := &model.SubjectModule{
		SubjectID: subject.ID,
		Name:      name,
		Position:  len(subject.Modules),
	}
	if err := s.SubjectRepo.CreateModule(module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *ContentService) AddContentItem(moduleID uint, itemType model.ContentType, name string, durationMinutes int) (*model.ContentItem, error) {
	module, err := s.SubjectRepo.FindModuleByID(moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}

	switch itemType {
	case model.ContentLecture, model.ContentQuiz, model.ContentHomework:
	default:
		return nil, fmt.Errorf("不支持的内容类型: %s", itemType)
	}

	var count int64
	s.SubjectRepo.DB.Model(&model.ContentItem{}).Where("module_id = ?", module.ID).Count(&count)

	item := &model.ContentItem{
		ModuleID:        module.ID,
		Type:            itemType,
		Name:            name,
		DurationMinutes: durationMinutes,
		Position:        int(count),
	}
	if err := s.SubjectRepo.CreateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ContentService) DeleteContentItem(id uint) error {
	if _, err := s.SubjectRepo.FindItemByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrContentNotFound
		}
		return err
	}
	return s.SubjectRepo.DeleteItem(id)
}

// ImportCatalogCSV 批量导入内容目录。列：科目,章节,类型,名称,时长分钟。
// 类型为 pyq 的行设置科目真题题量（时长列填题数）。科目与章节按名称
// 复用，原始文件存档一份便于追溯。
func (s *ContentService) ImportCatalogCSV(ctx context.Context, reader io.Reader) (int, error) {
	var buf strings.Builder
	tee := io.TeeReader(reader, &buf)

	r := csv.NewReader(tee)
	r.FieldsPerRecord = 5
	r.TrimLeadingSpace = true

	subjects := make(map[string]*model.Subject)
	modules := make(map[string]*model.SubjectModule)
	imported := 0
	line := 0

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("第 %d 行解析失败: %v", line+1, err)
		}
		line++

		subjectName := strings.TrimSpace(record[0])
		moduleName := strings.TrimSpace(record[1])
		itemType := model.ContentType(strings.ToLower(strings.TrimSpace(record[2])))
		itemName := strings.TrimSpace(record[3])
		duration, err := strconv.Atoi(strings.TrimSpace(record[4]))

		// 表头行跳过
		if line == 1 && err != nil {
			continue
		}
		if err != nil {
			return imported, fmt.Errorf("第 %d 行时长无效: %s", line, record[4])
		}
		if subjectName == "" {
			continue
		}

		subject, ok := subjects[subjectName]
		if !ok {
			subject, err = s.findOrCreateSubject(subjectName)
			if err != nil {
				return imported, err
			}
			subjects[subjectName] = subject
		}

		if itemType == model.ContentPYQ {
			if err := s.UpdatePYQCount(subject.ID, duration); err != nil {
				return imported, err
			}
			imported++
			continue
		}

		moduleKey := subjectName + "/" + moduleName
		module, ok := modules[moduleKey]
		if !ok {
			module, err = s.findOrCreateModule(subject.ID, moduleName)
			if err != nil {
				return imported, err
			}
			modules[moduleKey] = module
		}

		if _, err := s.AddContentItem(module.ID, itemType, itemName, duration); err != nil {
			return imported, err
		}
		imported++
	}

	// 存档原始文件
	if s.Storage != nil && buf.Len() > 0 {
		archive := fmt.Sprintf("catalog/import-%d.csv", time.Now().Unix())
		s.Storage.Upload(ctx, archive, strings.NewReader(buf.String()), int64(buf.Len()), "text/csv")
	}

	return imported, nil
}

func (s *ContentService) findOrCreateSubject(name string) (*model.Subject, error) {
	var subject model.Subject
	err := s.SubjectRepo.DB.Where("name = ?", name).First(&subject).Error
	if err == nil {
		return &subject, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.CreateSubject(name, 0)
}

func (s *ContentService) findOrCreateModule(subjectID uint, name string) (*model.SubjectModule, error) {
	var module model.SubjectModule
	err := s.SubjectRepo.DB.Where("subject_id = ? AND name = ?", subjectID, name).First(&module).Error
	if err == nil {
		return &module, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.AddModule(subjectID, name)
}

// AttachLectureVideo 上传录播课视频并用探测出的时长覆盖内容项时长
func (s *ContentService) AttachLectureVideo(ctx context.Context, itemID uint, localPath, filename string, size int64) (*model.ContentItem, error) {
	item, err := s.SubjectRepo.FindItemByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	if item.Type != model.ContentLecture {
		return nil, fmt.Errorf("只有录播课内容可以挂载视频")
	}

	info, err := util.GetVideoInfo(localPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	objectName := fmt.Sprintf("lectures/%d/%s", itemID, filename)
	url, err := s.Storage.Upload(ctx, objectName, f, size, "video/mp4")
	if err != nil {
		return nil, err
	}

	item.VideoURL = url
	if minutes := util.DurationToMinutes(info.Duration); minutes > 0 {
		item.DurationMinutes = minutes
	}
	if err := s.SubjectRepo.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}
