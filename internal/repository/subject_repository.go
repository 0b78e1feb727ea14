package repository

import (
	"studyplanner_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

// FindAll 返回全部科目，章节与内容项按 Position 预加载排序
func (r *SubjectRepository) FindAll() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("subject_modules.position ASC")
		}).
		Preload("Modules.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("content_items.position ASC")
		}).
		Order("subjects.id ASC").
		Find(&subjects).Error
	return subjects, err
}

// FindByIDs 返回指定科目集合，保持与 FindAll 相同的预加载顺序
func (r *SubjectRepository) FindByIDs(ids []uint) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("subject_modules.position ASC")
		}).
		Preload("Modules.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("content_items.position ASC")
		}).
		Where("id IN ?", ids).
		Order("subjects.id ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) FindByID(id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("subject_modules.position ASC")
		}).
		Preload("Modules.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("content_items.position ASC")
		}).
		First(&subject, id).Error
	return &subject, err
}

func (r *SubjectRepository) Create(subject *model.Subject) error {
	return r.DB.Create(subject).Error
}

func (r *SubjectRepository) Update(subject *model.Subject) error {
	return r.DB.Save(subject).Error
}

func (r *SubjectRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id IN (?)",
			tx.Model(&model.SubjectModule{}).Select("id").Where("subject_id = ?", id),
		).Delete(&model.ContentItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subject_id = ?", id).Delete(&model.SubjectModule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Subject{}, id).Error
	})
}

func (r *SubjectRepository) CreateModule(module *model.SubjectModule) error {
	return r.DB.Create(module).Error
}

func (r *SubjectRepository) FindModuleByID(id uint) (*model.SubjectModule, error) {
	var module model.SubjectModule
	err := r.DB.First(&module, id).Error
	return &module, err
}

func (r *SubjectRepository) CreateItem(item *model.ContentItem) error {
	return r.DB.Create(item).Error
}

func (r *SubjectRepository) FindItemByID(id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.First(&item, id).Error
	return &item, err
}

func (r *SubjectRepository) UpdateItem(item *model.ContentItem) error {
	return r.DB.Save(item).Error
}

func (r *SubjectRepository) DeleteItem(id uint) error {
	return r.DB.Delete(&model.ContentItem{}, id).Error
}
