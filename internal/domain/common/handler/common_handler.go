package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tiered_social/internal/pkg/uploader"
	"tiered_social/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxParallelUploads 同一请求内并发上传数
const maxParallelUploads = 5

var allowedFolders = map[string]bool{"media": true, "avatar": true, "cover": true}

type CommonHandler struct {
	uploader uploader.Uploader
	db       *gorm.DB
	redis    *redis.Client
	log      *zap.Logger
}

func NewCommonHandler(up uploader.Uploader, db *gorm.DB, rdb *redis.Client, log *zap.Logger) *CommonHandler {
	return &CommonHandler{uploader: up, db: db, redis: rdb, log: log}
}

// Upload POST /upload?folder=media，表单字段 files 可以多个，返回的 URL 与上传顺序一致
func (h *CommonHandler) Upload(c *gin.Context) {
	if h.uploader == nil {
		response.Error(c, http.StatusServiceUnavailable, response.ErrServerInternal, "Uploader not configured")
		return
	}

	folder := c.DefaultQuery("folder", "media")
	if !allowedFolders[folder] {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid folder")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}

	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(maxParallelUploads)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			url, err := h.uploader.UploadFile(ctx, folder, file)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, uploader.ErrUnsupportedType) {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
		h.log.Error("upload failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Upload failed")
		return
	}
	response.Success(c, urls)
}

// Health GET /health
func (h *CommonHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "disabled"}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "down"
		healthy = false
	}
	if h.redis != nil {
		status["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{Code: response.CodeError, Message: "unhealthy", Data: status})
		return
	}
	response.Success(c, status)
}
