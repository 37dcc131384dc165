package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"database/sql"
	"errors"

	"gorm.io/gorm"
)

type CourseFilter struct {
	Category   string
	Difficulty string
	Search     string
}

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) List(ctx context.Context, filter CourseFilter) ([]model.Course, error) {
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Search != "" {
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}

	var courses []model.Course
	err := query.Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return &course, err
}

// FindDetail 课程连同按 order_index 排序的模块和步骤
func (r *CourseRepository) FindDetail(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Modules.Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("id = ?", id).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return &course, err
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Save(course).Error
}

func (r *CourseRepository) UpdateCompletionRate(ctx context.Context, courseID string, rate int) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		Update("completion_rate", rate).
		Error
}

// Delete 级联删除模块、步骤以及依附于步骤的进度和提交
func (r *CourseRepository) Delete(ctx context.Context, courseID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moduleIDs := tx.Model(&model.Module{}).Select("id").Where("course_id = ?", courseID)
		if err := deleteStepsWhere(tx, "module_id IN (?)", moduleIDs); err != nil {
			return err
		}
		if err := tx.Unscoped().Where("course_id = ?", courseID).Delete(&model.Module{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&model.CourseCompletion{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("id = ?", courseID).Delete(&model.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrCourseNotFound
		}
		return nil
	})
}

func (r *CourseRepository) FindModule(ctx context.Context, id string) (*model.Module, error) {
	var module model.Module
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	return &module, err
}

func (r *CourseRepository) CreateModule(ctx context.Context, module *model.Module) error {
	return r.DB.WithContext(ctx).Create(module).Error
}

func (r *CourseRepository) UpdateModule(ctx context.Context, module *model.Module) error {
	return r.DB.WithContext(ctx).Save(module).Error
}

func (r *CourseRepository) DeleteModule(ctx context.Context, moduleID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteStepsWhere(tx, "module_id = ?", moduleID); err != nil {
			return err
		}
		res := tx.Unscoped().Where("id = ?", moduleID).Delete(&model.Module{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrModuleNotFound
		}
		return nil
	})
}

// NextModuleOrder 新模块默认排在末尾
func (r *CourseRepository) NextModuleOrder(ctx context.Context, courseID string) (int, error) {
	var max sql.NullInt64
	err := r.DB.WithContext(ctx).Model(&model.Module{}).
		Where("course_id = ?", courseID).
		Select("MAX(order_index)").
		Row().
		Scan(&max)
	if err != nil || !max.Valid {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func (r *CourseRepository) FindStep(ctx context.Context, id string) (*model.Step, error) {
	var step model.Step
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrStepNotFound
	}
	return &step, err
}

func (r *CourseRepository) CreateStep(ctx context.Context, step *model.Step) error {
	return r.DB.WithContext(ctx).Create(step).Error
}

func (r *CourseRepository) UpdateStep(ctx context.Context, step *model.Step) error {
	return r.DB.WithContext(ctx).Save(step).Error
}

func (r *CourseRepository) DeleteStep(ctx context.Context, stepID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Step{}).Where("id = ?", stepID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrStepNotFound
		}
		return deleteStepsWhere(tx, "id = ?", stepID)
	})
}

func (r *CourseRepository) NextStepOrder(ctx context.Context, moduleID string) (int, error) {
	var max sql.NullInt64
	err := r.DB.WithContext(ctx).Model(&model.Step{}).
		Where("module_id = ?", moduleID).
		Select("MAX(order_index)").
		Row().
		Scan(&max)
	if err != nil || !max.Valid {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func (r *CourseRepository) CountStepsInModule(ctx context.Context, moduleID string) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Step{}).
		Where("module_id = ?", moduleID).
		Count(&count).Error
	return int(count), err
}

func (r *CourseRepository) CountStepsInCourse(ctx context.Context, courseID string) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Step{}).
		Joins("JOIN modules ON modules.id = steps.module_id AND modules.deleted_at IS NULL").
		Where("modules.course_id = ?", courseID).
		Count(&count).Error
	return int(count), err
}

// ListOutline 课程下的模块及步骤（用于进度汇总）
func (r *CourseRepository) ListOutline(ctx context.Context, courseID string) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("course_id = ?", courseID).
		Order("order_index ASC").
		Find(&modules).Error
	return modules, err
}

// StepContext 步骤所在模块与课程的标题，用于通知邮件
type StepContext struct {
	Step        model.Step
	ModuleTitle string
	CourseID    string
	CourseTitle string
}

func (r *CourseRepository) FindStepContext(ctx context.Context, stepID string) (*StepContext, error) {
	step, err := r.FindStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	module, err := r.FindModule(ctx, step.ModuleID)
	if err != nil {
		return nil, err
	}
	course, err := r.FindByID(ctx, module.CourseID)
	if err != nil {
		return nil, err
	}
	return &StepContext{
		Step:        *step,
		ModuleTitle: module.Title,
		CourseID:    course.ID,
		CourseTitle: course.Title,
	}, nil
}

func deleteStepsWhere(tx *gorm.DB, query string, args ...interface{}) error {
	stepIDs := tx.Model(&model.Step{}).Select("id").Where(query, args...)
	if err := tx.Where("step_id IN (?)", stepIDs).Delete(&model.UserProgress{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("step_id IN (?)", stepIDs).Delete(&model.Submission{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where(query, args...).Delete(&model.Step{}).Error
}
