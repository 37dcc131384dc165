package controller

import (
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// SubmitRequest defines model for submission
// swagger:model SubmitRequest
type SubmitRequest struct {
	StepID  string `json:"stepId" binding:"required"`
	Content string `json:"content"`
	FileURL string `json:"fileUrl"`
}

// Submit godoc
// @Summary 提交作业
// @Description 内容和附件至少提供一项，提交后状态为 pending
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubmitRequest true "作业内容"
// @Success 201 {object} util.Response{data=model.Submission} "提交成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "步骤不存在"
// @Router /api/submissions [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.SubmissionService.Submit(ctx.Request.Context(), sessionFrom(ctx), req.StepID, req.Content, req.FileURL)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, submission)
}

// UploadFile godoc
// @Summary 上传作业附件
// @Description 支持图片、PDF、文本和 zip，返回附件 URL
// @Tags 作业
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "附件"
// @Success 200 {object} util.Response{data=object} "上传成功"
// @Failure 400 {object} util.Response "文件无效"
// @Router /api/submissions/upload [post]
func (c *SubmissionController) UploadFile(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的文件")
		return
	}

	url, err := c.SubmissionService.UploadSubmissionFile(ctx.Request.Context(), sessionFrom(ctx), file)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// ListMine godoc
// @Summary 我的作业
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Submission} "成功"
// @Router /api/submissions/mine [get]
func (c *SubmissionController) ListMine(ctx *gin.Context) {
	submissions, err := c.SubmissionService.ListMySubmissions(ctx.Request.Context(), sessionFrom(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}

// List godoc
// @Summary 作业列表
// @Tags 作业审核
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "pending / approved / rejected"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/submissions [get]
func (c *SubmissionController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.SubmissionService.ListSubmissions(ctx.Request.Context(), model.SubmissionStatus(ctx.Query("status")), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  result.Items,
		Total: result.Total,
		Page:  result.Page,
		Limit: result.PageSize,
	})
}

// Review godoc
// @Summary 审核作业
// @Description 只能审核 pending 状态的作业；通过后为学员标记步骤完成
// @Tags 作业审核
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作业ID"
// @Param   body body service.ReviewInput true "审核结果"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 400 {object} util.Response "分数无效"
// @Failure 409 {object} util.Response "作业已审核"
// @Router /api/admin/submissions/{id}/review [post]
func (c *SubmissionController) Review(ctx *gin.Context) {
	var req service.ReviewInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.SubmissionService.Review(ctx.Request.Context(), sessionFrom(ctx), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
