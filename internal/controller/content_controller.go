package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// ContentController 内容目录的API入口，写操作需要管理员角色
type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// CreateSubjectRequest 新建科目请求
// swagger:model CreateSubjectRequest
type CreateSubjectRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	PYQCount int    `json:"pyqCount" binding:"omitempty,min=0"`
}

// CreateModuleRequest 新建章节请求
// swagger:model CreateModuleRequest
type CreateModuleRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateItemRequest 新建内容项请求
// swagger:model CreateItemRequest
type CreateItemRequest struct {
	Type            model.ContentType `json:"type" binding:"required"`
	Name            string            `json:"name" binding:"required,max=200"`
	DurationMinutes int               `json:"durationMinutes" binding:"required,min=1"`
}

// ListSubjects godoc
// @Summary 内容目录
// @Tags 内容管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/subjects [get]
func (c *ContentController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.ContentService.ListSubjects()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// GetSubject godoc
// @Summary 科目详情
// @Tags 内容管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Success 200 {object} util.Response{data=model.Subject}
// @Failure 404 {object} util.Response
// @Router /api/subjects/{id} [get]
func (c *ContentController) GetSubject(ctx *gin.Context) {
	subject, err := c.ContentService.GetSubject(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// CreateSubject godoc
// @Summary 新建科目
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateSubjectRequest true "新建科目请求"
// @Success 201 {object} util.Response{data=model.Subject}
// @Failure 400 {object} util.Response
// @Router /api/admin/subjects [post]
func (c *ContentController) CreateSubject(ctx *gin.Context) {
	var request CreateSubjectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.ContentService.CreateSubject(request.Name, request.PYQCount)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// DeleteSubject godoc
// @Summary 删除科目及其下全部内容
// @Tags 内容管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/subjects/{id} [delete]
func (c *ContentController) DeleteSubject(ctx *gin.Context) {
	if err := c.ContentService.DeleteSubject(util.MustParseUint(ctx.Param("id"))); err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateModule godoc
// @Summary 科目下新建章节
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Param request body CreateModuleRequest true "新建章节请求"
// @Success 201 {object} util.Response{data=model.SubjectModule}
// @Router /api/admin/subjects/{id}/modules [post]
func (c *ContentController) CreateModule(ctx *gin.Context) {
	var request CreateModuleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.ContentService.AddModule(util.MustParseUint(ctx.Param("id")), request.Name)
	if err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// CreateItem godoc
// @Summary 章节下新建内容项
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "章节ID"
// @Param request body CreateItemRequest true "新建内容项请求"
// @Success 201 {object} util.Response{data=model.ContentItem}
// @Router /api/admin/modules/{id}/items [post]
func (c *ContentController) CreateItem(ctx *gin.Context) {
	var request CreateItemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.ContentService.AddContentItem(
		util.MustParseUint(ctx.Param("id")),
		request.Type,
		request.Name,
		request.DurationMinutes,
	)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, item)
}

// ImportCatalog godoc
// @Summary CSV 批量导入内容目录
// @Description 列：科目,章节,类型,名称,时长分钟；类型 pyq 的行设置真题题量
// @Tags 内容管理
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "CSV文件"
// @Success 200 {object} util.Response{data=map[string]interface{}}
// @Failure 400 {object} util.Response "文件或内容无效"
// @Router /api/admin/catalog/import [post]
func (c *ContentController) ImportCatalog(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少CSV文件")
		return
	}

	f, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	imported, err := c.ContentService.ImportCatalogCSV(ctx.Request.Context(), f)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, gin.H{"imported": imported})
}

// UploadLectureVideo godoc
// @Summary 录播课视频上传
// @Description 上传后自动探测视频时长并更新内容项
// @Tags 内容管理
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "内容项ID"
// @Param file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.ContentItem}
// @Failure 400 {object} util.Response
// @Router /api/admin/items/{id}/video [post]
func (c *ContentController) UploadLectureVideo(ctx *gin.Context) {
	itemID := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少视频文件")
		return
	}

	// 先落到临时文件，探测时长需要本地路径
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("lecture-%d-%d%s", itemID, time.Now().UnixNano(), filepath.Ext(file.Filename)))
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	item, err := c.ContentService.AttachLectureVideo(ctx.Request.Context(), itemID, tmpPath, file.Filename, file.Size)
	if err != nil {
		if errors.Is(err, util.ErrContentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, item)
}
