package file

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/abduss/filevault/internal/fault"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdentityResolver returns the authenticated owner of the request.
type IdentityResolver func(c *gin.Context) (uuid.UUID, bool)

// RegisterRoutes mounts file, folder and account deletion routes on an authenticated group.
func RegisterRoutes(group *gin.RouterGroup, service *Service, resolve IdentityResolver) {
	handler := &httpHandler{service: service, resolve: resolve}
	group.POST("/files", handler.uploadFile)
	group.GET("/files", handler.listFiles)
	group.GET("/files/:fileID/download", handler.downloadFile)
	group.GET("/download/:name", handler.downloadByName)
	group.DELETE("/files/:fileID", handler.deleteFile)
	group.DELETE("/files", handler.deleteFiles)
	group.DELETE("/delete/:name", handler.deleteByName)
	group.POST("/folders", handler.createFolder)
	group.GET("/folders/:folderID/path", handler.folderPath)
	group.DELETE("/user", handler.deleteAccount)
}

type httpHandler struct {
	service *Service
	resolve IdentityResolver
}

type createFolderRequest struct {
	Name     string     `json:"name" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type deleteFilesRequest struct {
	IDs  []uuid.UUID `json:"ids" binding:"required"`
	Mode string      `json:"mode"`
}

func (h *httpHandler) owner(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := h.resolve(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return ownerID, ok
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: "file field is required"})
		return
	}
	if fileHeader.Size > h.service.maxFileSize {
		respondError(c, ErrFileTooLarge)
		return
	}

	var parentID *uuid.UUID
	if raw := c.PostForm("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Result{Message: "invalid parent id"})
			return
		}
		parentID = &id
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: "unreadable upload"})
		return
	}
	defer src.Close()

	stored, err := h.service.Upload(c.Request.Context(), ownerID, fileHeader.Filename, src, parentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Result{
		Success:  true,
		Message:  "file uploaded",
		FileName: stored.Name,
		File:     &stored,
	})
}

func (h *httpHandler) listFiles(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	entries, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": entries})
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: "invalid file id"})
		return
	}

	meta, reader, err := h.service.Download(c.Request.Context(), ownerID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	streamFile(c, meta, reader)
}

func (h *httpHandler) downloadByName(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	meta, reader, err := h.service.DownloadByName(c.Request.Context(), ownerID, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	streamFile(c, meta, reader)
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: "invalid file id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, fileID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Result{Success: true, Message: "file deleted", Deleted: []uuid.UUID{fileID}})
}

func (h *httpHandler) deleteByName(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	f, err := h.service.DeleteByName(c.Request.Context(), ownerID, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Result{Success: true, Message: "file deleted", FileName: f.Name, Deleted: []uuid.UUID{f.ID}})
}

func (h *httpHandler) deleteFiles(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	var req deleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: err.Error()})
		return
	}
	mode, err := ParseBatchMode(req.Mode, h.service.DefaultBatchMode())
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: err.Error()})
		return
	}

	deleted, err := h.service.DeleteMany(c.Request.Context(), ownerID, req.IDs, mode)
	if err != nil {
		result := Result{Message: fault.Message(err), Deleted: deleted}
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			result.Message = fmt.Sprintf("%s: %s", fault.Message(err), batchErr.FileID)
		}
		c.JSON(fault.HTTPStatus(err), result)
		return
	}

	c.JSON(http.StatusOK, Result{Success: true, Message: "files deleted", Deleted: deleted})
}

func (h *httpHandler) createFolder(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: err.Error()})
		return
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), ownerID, req.Name, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Result{Success: true, Message: "folder created", Folder: &folder})
}

func (h *httpHandler) folderPath(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	folderID, err := uuid.Parse(c.Param("folderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Result{Message: "invalid folder id"})
		return
	}

	resolved, err := h.service.ResolvePath(c.Request.Context(), ownerID, folderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": folderID, "path": resolved})
}

func (h *httpHandler) deleteAccount(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), ownerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Result{Success: true, Message: "account deleted"})
}

func respondError(c *gin.Context, err error) {
	c.JSON(fault.HTTPStatus(err), Result{Message: fault.Message(err)})
}

func streamFile(c *gin.Context, meta File, reader io.Reader) {
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Name))
	c.Header("Content-Length", strconv.FormatInt(meta.SizeBytes, 10))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}
