package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// saveUpload 校验并保存上传的图片，失败时已写入响应
func saveUpload(c *gin.Context, cfg *config.Config) (string, bool) {
	// 获取上传的文件
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return "", false
	}

	// 验证文件大小
	if file.Size > cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", cfg.Upload.MaxSize/(1024*1024)),
		})
		return "", false
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !isAllowedType(cfg.Upload, contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型",
		})
		return "", false
	}

	// 生成文件名
	ext := filepath.Ext(file.Filename)
	filename := fmt.Sprintf("%d%s", utils.GenerateID(), ext)
	savePath := filepath.Join(cfg.Upload.UploadDir, filename)

	// 保存文件
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		utils.Logger.Error("failed to save file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "保存文件失败",
			Error:   err.Error(),
		})
		return "", false
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", filename),
		zap.Int64("size", file.Size))
	return savePath, true
}

func isAllowedType(cfg config.UploadConfig, contentType string) bool {
	for _, allowed := range cfg.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// removeTemp 删除临时上传文件
func removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		utils.Logger.Warn("failed to delete temp file",
			zap.String("file", path),
			zap.Error(err))
	} else {
		utils.Logger.Debug("temp file deleted",
			zap.String("file", path))
	}
}
