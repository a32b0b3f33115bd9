package handler

import (
	"net/http"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/service"
	"github.com/TIANLI0/VoxelKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EdgeHandler 返回处理后的预览图：sobel 为边缘图，其余为模糊灰度图
type EdgeHandler struct {
	cfg    *config.Config
	source *service.EdgeMaskSource
}

func NewEdgeHandler(cfg *config.Config) *EdgeHandler {
	return &EdgeHandler{
		cfg:    cfg,
		source: service.NewEdgeMaskSource(cfg.Mask),
	}
}

// Preview 上传图片，返回处理后的 PNG
func (h *EdgeHandler) Preview(c *gin.Context) {
	savePath, ok := saveUpload(c, h.cfg)
	if !ok {
		return
	}
	if h.cfg.Convert.CleanupTempFiles {
		defer removeTemp(savePath)
	}

	processType := c.DefaultPostForm("process_type", "sobel")
	src := service.ImageSource{Path: savePath}

	var png []byte
	var err error
	switch processType {
	case "sobel", "edge":
		png, err = h.source.Preview(src)
	default:
		png, err = h.source.BlurPreview(src)
	}
	if err != nil {
		utils.Logger.Error("failed to build preview",
			zap.String("process_type", processType),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "无法读取图片",
			Kind:    string(service.KindInvalidImage),
			Error:   err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
