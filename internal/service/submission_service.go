package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"
)

type SubmissionService struct {
	SubmissionRepo *repository.SubmissionRepository
	CourseRepo     *repository.CourseRepository
	UserRepo       *repository.UserRepository
	Progress       *ProgressService
	StorageService *StorageService
	Email          EmailSender
}

func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	progress *ProgressService,
	storage *StorageService,
	email EmailSender,
) *SubmissionService {
	return &SubmissionService{
		SubmissionRepo: submissionRepo,
		CourseRepo:     courseRepo,
		UserRepo:       userRepo,
		Progress:       progress,
		StorageService: storage,
		Email:          email,
	}
}

// Submit 学员提交作业，状态为 pending
func (s *SubmissionService) Submit(ctx context.Context, sess *Session, stepID, content, fileURL string) (*model.Submission, error) {
	if sess == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	content = strings.TrimSpace(content)
	fileURL = strings.TrimSpace(fileURL)
	if content == "" && fileURL == "" {
		return nil, util.ErrEmptySubmission
	}

	if _, err := s.CourseRepo.FindStep(ctx, stepID); err != nil {
		return nil, err
	}
	profileID, err := s.UserRepo.GetProfileID(ctx, sess.UserID)
	if err != nil {
		return nil, &util.NotAuthenticatedError{Reason: "profile lookup", Err: err}
	}

	submission := &model.Submission{
		StepID:      stepID,
		StudentID:   profileID,
		Content:     content,
		FileURL:     fileURL,
		Status:      model.SubmissionPending,
		SubmittedAt: time.Now(),
	}
	if err := s.SubmissionRepo.Create(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// UploadSubmissionFile 校验文件类型后上传，返回可访问的 URL
func (s *SubmissionService) UploadSubmissionFile(ctx context.Context, sess *Session, file *multipart.FileHeader) (string, error) {
	if sess == nil {
		return "", &util.NotAuthenticatedError{Reason: "no session"}
	}
	if file.Size > util.MaxSubmissionFileSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", util.ErrInvalidFile, util.MaxSubmissionFileSize)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.AllowedSubmissionTypes)
	if err != nil {
		return "", err
	}

	return s.StorageService.Upload(ctx, ObjectKey("submissions", file.Filename), src, file.Size, mimeType)
}

type SubmissionListResult struct {
	Items    []model.Submission `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, status model.SubmissionStatus, page, pageSize int) (*SubmissionListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := s.SubmissionRepo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &SubmissionListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, sess *Session) ([]model.Submission, error) {
	if sess == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	profileID, err := s.UserRepo.GetProfileID(ctx, sess.UserID)
	if err != nil {
		return nil, &util.NotAuthenticatedError{Reason: "profile lookup", Err: err}
	}
	return s.SubmissionRepo.ListByStudent(ctx, profileID)
}

type ReviewInput struct {
	Status   model.SubmissionStatus `json:"status" binding:"required"`
	Grade    *int                   `json:"grade"`
	Feedback string                 `json:"feedback"`
}

// Review 审核作业：只允许 pending → approved/rejected。
// 通过且步骤要求提交作业时，为学员标记步骤完成。
func (s *SubmissionService) Review(ctx context.Context, reviewer *Session, submissionID string, in ReviewInput) (*model.Submission, error) {
	if reviewer == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	if !reviewer.Role.IsAdmin() && !reviewer.Role.IsTeacher() {
		return nil, util.ErrPermissionDenied
	}
	if in.Grade != nil && (*in.Grade < 0 || *in.Grade > 100) {
		return nil, util.ErrInvalidGrade
	}

	submission, err := s.SubmissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !submission.Status.CanTransitionTo(in.Status) {
		return nil, util.ErrInvalidTransition
	}

	reviewerID, err := s.UserRepo.GetProfileID(ctx, reviewer.UserID)
	if err != nil {
		return nil, &util.NotAuthenticatedError{Reason: "profile lookup", Err: err}
	}

	now := time.Now()
	if err := s.SubmissionRepo.Review(ctx, submissionID, in.Status, in.Grade, in.Feedback, reviewerID, now); err != nil {
		return nil, err
	}
	monitoring.SubmissionReviews.WithLabelValues(string(in.Status)).Inc()

	submission.Status = in.Status
	submission.Grade = in.Grade
	submission.Feedback = in.Feedback
	submission.ReviewedBy = &reviewerID
	submission.ReviewedAt = &now

	stepCtx, err := s.CourseRepo.FindStepContext(ctx, submission.StepID)
	if err != nil {
		// 审核已落库，后续步骤只影响通知和进度
		logger.Log.Error("load step context after review failed",
			zap.String("submissionId", submissionID),
			zap.Error(err),
		)
		return submission, nil
	}

	if in.Status == model.SubmissionApproved && stepCtx.Step.RequiresSubmission {
		s.completeForStudent(ctx, submission, stepCtx.CourseID)
	}

	if student := submission.Student; student != nil && student.Email != "" {
		sendAsync(s.Email, submissionFeedbackEmail(
			student.FullName, student.Email,
			stepCtx.Step.Title, stepCtx.CourseTitle,
			string(in.Status), in.Grade, in.Feedback,
		))
	}
	return submission, nil
}

func (s *SubmissionService) completeForStudent(ctx context.Context, submission *model.Submission, courseID string) {
	if submission.Student == nil {
		logger.Log.Warn("approved submission without student profile", zap.String("submissionId", submission.ID))
		return
	}
	sess := &Session{
		UserID: submission.Student.UserID,
		Email:  submission.Student.Email,
		Role:   submission.Student.Role,
	}
	if !s.Progress.MarkStepComplete(ctx, sess, submission.StepID, courseID) {
		logger.Log.Error("mark step complete after approval failed",
			zap.String("submissionId", submission.ID),
			zap.String("stepId", submission.StepID),
		)
	}
}
