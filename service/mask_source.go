package service

import (
	"context"
	"strings"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/pkg/errors"
)

// ImageSource 待转换的图片，Data 非空时优先使用 Data
type ImageSource struct {
	Path string
	Data []byte
}

func (s ImageSource) String() string {
	if s.Path != "" {
		return s.Path
	}
	return "<memory>"
}

// MaskSource 将图片二值化为掩码
type MaskSource interface {
	Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error)
}

// MaskSourceFunc 函数适配器
type MaskSourceFunc func(ctx context.Context, src ImageSource) (*model.BinaryMask, error)

func (f MaskSourceFunc) Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error) {
	return f(ctx, src)
}

// NewMaskSource 根据配置选择二值化方式
func NewMaskSource(cfg config.MaskConfig) (MaskSource, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", "edge", "sobel":
		return NewEdgeMaskSource(cfg), nil
	case "adaptive":
		return NewAdaptiveMaskSource(cfg), nil
	case "otsu":
		return NewOtsuMaskSource(cfg), nil
	case "luma", "gray", "grayscale":
		return NewLumaMaskSource(cfg.LumaThreshold, cfg.Invert), nil
	}
	return nil, errors.Errorf("unknown mask mode %q", cfg.Mode)
}
