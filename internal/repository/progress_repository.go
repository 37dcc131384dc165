package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db, now: time.Now}
}

// UpsertCompletion 以 (user_id, step_id) 为键写入 completed=true。
// 重复调用不覆盖首次的 completed_at。
func (r *ProgressRepository) UpsertCompletion(ctx context.Context, profileID, stepID string) (*model.UserProgress, error) {
	db := r.DB.WithContext(ctx)

	var steps int64
	if err := db.Model(&model.Step{}).Where("id = ?", stepID).Count(&steps).Error; err != nil {
		return nil, util.NewStoreError("upsert completion", err)
	}
	if steps == 0 {
		return nil, util.NewStoreError("upsert completion", util.ErrStepNotFound)
	}

	now := r.now()
	record := &model.UserProgress{
		UserID:      profileID,
		StepID:      stepID,
		Completed:   true,
		CompletedAt: &now,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "step_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"completed":    true,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", now),
			"updated_at":   now,
		}),
	}).Create(record).Error
	if err != nil {
		return nil, util.NewStoreError("upsert completion", err)
	}

	var stored model.UserProgress
	err = db.Where("user_id = ? AND step_id = ?", profileID, stepID).First(&stored).Error
	if err != nil {
		return nil, util.NewStoreError("upsert completion", err)
	}
	return &stored, nil
}

// Find 读取单条记录，不存在时返回 nil（absent 状态）
func (r *ProgressRepository) Find(ctx context.Context, profileID, stepID string) (*model.UserProgress, error) {
	var records []model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND step_id = ?", profileID, stepID).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, util.NewStoreError("find progress", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListCompletedForUser 模块内已完成的步骤 id
func (r *ProgressRepository) ListCompletedForUser(ctx context.Context, profileID, moduleID string) (map[string]struct{}, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Table("user_progress").
		Joins("JOIN steps ON steps.id = user_progress.step_id AND steps.deleted_at IS NULL").
		Where("user_progress.user_id = ? AND user_progress.completed = ? AND steps.module_id = ?", profileID, true, moduleID).
		Pluck("user_progress.step_id", &ids).Error
	if err != nil {
		return nil, util.NewStoreError("list completed for module", err)
	}
	return toSet(ids), nil
}

// ListCompletedForUserInCourse 课程内已完成的步骤 id
func (r *ProgressRepository) ListCompletedForUserInCourse(ctx context.Context, profileID, courseID string) (map[string]struct{}, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Table("user_progress").
		Joins("JOIN steps ON steps.id = user_progress.step_id AND steps.deleted_at IS NULL").
		Joins("JOIN modules ON modules.id = steps.module_id AND modules.deleted_at IS NULL").
		Where("user_progress.user_id = ? AND user_progress.completed = ? AND modules.course_id = ?", profileID, true, courseID).
		Pluck("user_progress.step_id", &ids).Error
	if err != nil {
		return nil, util.NewStoreError("list completed for course", err)
	}
	return toSet(ids), nil
}

func (r *ProgressRepository) ListProgressForUser(ctx context.Context, profileID string) ([]model.ProgressDetail, error) {
	rows, err := r.scanDetails(r.detailQuery(ctx).Where("up.user_id = ?", profileID))
	if err != nil {
		return nil, util.NewStoreError("list progress", err)
	}
	return mapProgressRows(rows)
}

func (r *ProgressRepository) ListProgressForUserAndCourse(ctx context.Context, profileID, courseID string) ([]model.ProgressDetail, error) {
	rows, err := r.scanDetails(r.detailQuery(ctx).Where("up.user_id = ? AND m.course_id = ?", profileID, courseID))
	if err != nil {
		return nil, util.NewStoreError("list course progress", err)
	}
	return mapProgressRows(rows)
}

// CountCompletedByProfile 按学员统计课程内已完成步骤数
func (r *ProgressRepository) CountCompletedByProfile(ctx context.Context, courseID string) (map[string]int, error) {
	var rows []struct {
		UserID    string
		Completed int
	}
	err := r.DB.WithContext(ctx).Table("user_progress").
		Select("user_progress.user_id AS user_id, COUNT(*) AS completed").
		Joins("JOIN steps ON steps.id = user_progress.step_id AND steps.deleted_at IS NULL").
		Joins("JOIN modules ON modules.id = steps.module_id AND modules.deleted_at IS NULL").
		Where("modules.course_id = ? AND user_progress.completed = ?", courseID, true).
		Group("user_progress.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, util.NewStoreError("count completed by profile", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Completed
	}
	return counts, nil
}

// progressRow 联表的原始行，join 列可能为 NULL
type progressRow struct {
	StepID      string
	Completed   bool
	CompletedAt *time.Time
	StepTitle   *string
	StepOrder   *int
	ModuleID    *string
	ModuleTitle *string
	ModuleOrder *int
	CourseID    *string
}

func (r *ProgressRepository) detailQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Table("user_progress AS up").
		Select("up.step_id AS step_id, up.completed AS completed, up.completed_at AS completed_at, " +
			"s.title AS step_title, s.order_index AS step_order, " +
			"m.id AS module_id, m.title AS module_title, m.order_index AS module_order, " +
			"m.course_id AS course_id").
		Joins("LEFT JOIN steps s ON s.id = up.step_id AND s.deleted_at IS NULL").
		Joins("LEFT JOIN modules m ON m.id = s.module_id AND m.deleted_at IS NULL")
}

func (r *ProgressRepository) scanDetails(query *gorm.DB) ([]progressRow, error) {
	var rows []progressRow
	err := query.Order("m.order_index ASC, s.order_index ASC").Scan(&rows).Error
	return rows, err
}

func mapProgressRows(rows []progressRow) ([]model.ProgressDetail, error) {
	details := make([]model.ProgressDetail, 0, len(rows))
	for _, row := range rows {
		detail, err := row.toDetail()
		if err != nil {
			return nil, util.NewStoreError("map progress", err)
		}
		details = append(details, detail)
	}
	return details, nil
}

func (row progressRow) toDetail() (model.ProgressDetail, error) {
	missing := func(field string) error {
		return &util.MappingError{Entity: "user_progress", Field: field, Key: row.StepID}
	}
	switch {
	case row.StepTitle == nil:
		return model.ProgressDetail{}, missing("steps.title")
	case row.ModuleID == nil:
		return model.ProgressDetail{}, missing("steps.module_id")
	case row.CourseID == nil:
		return model.ProgressDetail{}, missing("modules.course_id")
	}

	detail := model.ProgressDetail{
		StepID:      row.StepID,
		StepTitle:   *row.StepTitle,
		ModuleID:    *row.ModuleID,
		CourseID:    *row.CourseID,
		Completed:   row.Completed,
		CompletedAt: row.CompletedAt,
	}
	if row.StepOrder != nil {
		detail.StepOrder = *row.StepOrder
	}
	if row.ModuleTitle != nil {
		detail.ModuleTitle = *row.ModuleTitle
	}
	if row.ModuleOrder != nil {
		detail.ModuleOrder = *row.ModuleOrder
	}
	return detail, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
