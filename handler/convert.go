package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/service"
	"github.com/TIANLI0/VoxelKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConvertHandler struct {
	cfg          *config.Config
	redisService *service.RedisService
	converter    *service.Converter
}

func NewConvertHandler(cfg *config.Config, redis *service.RedisService, converter *service.Converter) *ConvertHandler {
	return &ConvertHandler{
		cfg:          cfg,
		redisService: redis,
		converter:    converter,
	}
}

// convertParams 单次请求的转换参数
type convertParams struct {
	mask             config.MaskConfig
	height           float64
	baseThickness    float64
	backgroundHeight float64
}

func (p convertParams) key() []string {
	return []string{
		p.mask.Mode,
		strconv.FormatFloat(p.mask.Threshold, 'g', -1, 64),
		strconv.Itoa(int(p.mask.LumaThreshold)),
		strconv.FormatBool(p.mask.Invert),
		strconv.FormatFloat(p.height, 'g', -1, 64),
		strconv.FormatFloat(p.baseThickness, 'g', -1, 64),
		strconv.FormatFloat(p.backgroundHeight, 'g', -1, 64),
	}
}

// Convert 上传图片并生成 STL 文件
func (h *ConvertHandler) Convert(c *gin.Context) {
	savePath, ok := saveUpload(c, h.cfg)
	if !ok {
		return
	}
	if h.cfg.Convert.CleanupTempFiles {
		defer removeTemp(savePath)
	}

	params, err := h.parseParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "参数错误",
			Kind:    string(service.KindInvalidSpec),
			Error:   err.Error(),
		})
		return
	}

	// 计算MD5
	md5, err := utils.FileMD5(savePath)
	if err != nil {
		utils.Logger.Error("failed to calculate md5", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "计算文件哈希失败",
			Error:   err.Error(),
		})
		return
	}

	// 检查缓存
	ctx := c.Request.Context()
	cacheKey := utils.CacheKey(md5, params.key()...)
	cached, err := h.redisService.GetResult(ctx, cacheKey)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cached != nil {
		utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
		c.JSON(http.StatusOK, model.ConvertResponse{
			Success: true,
			Message: "转换成功（来自缓存）",
			Data:    cached,
		})
		return
	}

	source, err := service.NewMaskSource(params.mask)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的二值化模式",
			Kind:    string(service.KindInvalidSpec),
			Error:   err.Error(),
		})
		return
	}

	// 执行转换
	targets := h.buildTargets(utils.GenerateName(md5[:8]), params)
	result, err := h.converter.WithSource(source).Convert(ctx, service.ImageSource{Path: savePath}, targets)
	if result != nil {
		result.MD5 = cacheKey
		for i := range result.Targets {
			if result.Targets[i].Status == model.TargetDone {
				result.Targets[i].URL = strings.TrimRight(h.cfg.Output.URLPrefix, "/") + "/" + filepath.Base(result.Targets[i].Destination)
			}
		}
	}
	if err != nil {
		utils.Logger.Error("failed to convert image", zap.String("md5", md5), zap.Error(err))
		status, msg := errorStatus(err)
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Message: msg,
			Kind:    string(service.KindOf(err)),
			Error:   err.Error(),
			Data:    result,
		})
		return
	}

	// 保存到缓存
	if err := h.redisService.SetResult(ctx, cacheKey, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, model.ConvertResponse{
		Success: true,
		Message: "转换成功",
		Data:    result,
	})
}

// GetResult 根据缓存键查询转换结果
func (h *ConvertHandler) GetResult(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "缓存键缺失",
		})
		return
	}

	result, err := h.redisService.GetResult(c.Request.Context(), key)
	if err != nil {
		utils.Logger.Error("failed to get conversion result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "查询失败",
			Error:   err.Error(),
		})
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到转换结果",
		})
		return
	}

	c.JSON(http.StatusOK, model.ConvertResponse{
		Success: true,
		Message: "查询成功",
		Data:    result,
	})
}

func (h *ConvertHandler) buildTargets(stem string, p convertParams) []service.Target {
	targets := []service.Target{{
		Name: model.Foreground.String(),
		Spec: model.ExtrusionSpec{
			Height:        p.height,
			BaseThickness: p.baseThickness,
			Polarity:      model.Foreground,
		},
		Destination: filepath.Join(h.cfg.Output.Dir, stem+"_foreground.stl"),
	}}
	if p.backgroundHeight > 0 {
		targets = append(targets, service.Target{
			Name: model.Background.String(),
			Spec: model.ExtrusionSpec{
				Height:        p.backgroundHeight,
				BaseThickness: p.baseThickness,
				Polarity:      model.Background,
			},
			Destination: filepath.Join(h.cfg.Output.Dir, stem+"_background.stl"),
		})
	}
	return targets
}

func (h *ConvertHandler) parseParams(c *gin.Context) (convertParams, error) {
	p := convertParams{
		mask:             h.cfg.Mask,
		height:           h.cfg.Extrusion.Height,
		baseThickness:    h.cfg.Extrusion.BaseThickness,
		backgroundHeight: h.cfg.Extrusion.BackgroundHeight,
	}
	p.mask.Mode = c.DefaultPostForm("mode", p.mask.Mode)

	var err error
	if p.mask.Threshold, err = formFloat(c, "threshold", p.mask.Threshold); err != nil {
		return p, err
	}
	if v, ok := c.GetPostForm("luma_threshold"); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return p, fmt.Errorf("invalid luma_threshold %q", v)
		}
		p.mask.LumaThreshold = uint8(n)
	}
	if v, ok := c.GetPostForm("invert"); ok {
		if p.mask.Invert, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("invalid invert %q", v)
		}
	}
	if p.height, err = formFloat(c, "height", p.height); err != nil {
		return p, err
	}
	if p.baseThickness, err = formFloat(c, "base_thickness", p.baseThickness); err != nil {
		return p, err
	}
	if p.backgroundHeight, err = formFloat(c, "background_height", p.backgroundHeight); err != nil {
		return p, err
	}
	if p.backgroundHeight < 0 {
		return p, fmt.Errorf("background_height must be >= 0")
	}
	return p, nil
}

func formFloat(c *gin.Context, name string, def float64) (float64, error) {
	v, ok := c.GetPostForm(name)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func errorStatus(err error) (int, string) {
	switch service.KindOf(err) {
	case service.KindInvalidImage:
		return http.StatusBadRequest, "无法读取图片"
	case service.KindInvalidSpec:
		return http.StatusBadRequest, "挤出参数无效"
	case service.KindBusy:
		return http.StatusServiceUnavailable, "处理队列已满，请稍后重试"
	case service.KindCanceled:
		return http.StatusServiceUnavailable, "转换已取消"
	case service.KindSerializeIO:
		return http.StatusInternalServerError, "写入 STL 文件失败"
	}
	return http.StatusInternalServerError, "转换失败"
}
