package service

import (
	"context"
	"time"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/utils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Target 一个输出变体：挤出参数 + 目标文件
type Target struct {
	Name        string
	Spec        model.ExtrusionSpec
	Destination string
}

// Converter 图片转 STL 的门面：二值化一次，然后逐个目标挤出并写文件
type Converter struct {
	source       MaskSource
	semaphore    chan struct{}
	queueTimeout time.Duration
	parallel     bool
	stlOpts      []STLOption
}

func NewConverter(source MaskSource, cfg *config.ConvertConfig, opts ...STLOption) *Converter {
	return &Converter{
		source:       source,
		semaphore:    make(chan struct{}, max(cfg.MaxConcurrent, 1)),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
		parallel:     cfg.Parallel,
		stlOpts:      opts,
	}
}

// Convert 执行一次转换。
//
// 掩码生成失败时不会进行任何挤出；某个目标写入失败时返回带目标信息的错误，
// 同时返回已完成目标的结果，已经写好的文件保留在磁盘上。
func (c *Converter) Convert(ctx context.Context, src ImageSource, targets []Target) (*model.ConversionResult, error) {
	for _, t := range targets {
		if err := t.Spec.Validate(); err != nil {
			return nil, &ConversionError{Kind: KindInvalidSpec, Target: t.Name, Destination: t.Destination, Err: err}
		}
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-c.semaphore }()

	startTime := time.Now()

	mask, err := c.source.Mask(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ConversionError{Kind: KindCanceled, Err: ctx.Err()}
		}
		return nil, &ConversionError{Kind: KindInvalidImage, Err: err}
	}
	if mask == nil {
		return nil, &ConversionError{Kind: KindInvalidImage, Err: errors.Errorf("mask source returned no mask for %s", src)}
	}

	utils.Logger.Info("mask ready",
		zap.String("source", src.String()),
		zap.Int("width", mask.Width),
		zap.Int("height", mask.Height),
		zap.Int("solid", mask.CountSolid(model.Foreground)))

	result := &model.ConversionResult{
		Width:     mask.Width,
		Height:    mask.Height,
		Solid:     mask.CountSolid(model.Foreground),
		Targets:   make([]model.TargetResult, len(targets)),
		Timestamp: time.Now().Unix(),
	}
	for i, t := range targets {
		result.Targets[i] = model.TargetResult{
			Name:        t.Name,
			Spec:        t.Spec,
			Status:      model.TargetSkipped,
			Destination: t.Destination,
		}
	}

	if c.parallel && len(targets) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i := range targets {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return canceled(targets[i], err)
				}
				return c.convertTarget(mask, targets[i], &result.Targets[i])
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}
	} else {
		for i := range targets {
			if err := ctx.Err(); err != nil {
				return result, canceled(targets[i], err)
			}
			if err := c.convertTarget(mask, targets[i], &result.Targets[i]); err != nil {
				return result, err
			}
		}
	}

	utils.Logger.Info("conversion finished",
		zap.String("source", src.String()),
		zap.Int("targets", len(targets)),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

// convertTarget 挤出并写文件，out 已预填目标信息
func (c *Converter) convertTarget(mask *model.BinaryMask, t Target, out *model.TargetResult) error {
	mesh, err := Extrude(mask, t.Spec)
	if err != nil {
		return failTarget(out, &ConversionError{Kind: KindInvalidSpec, Target: t.Name, Destination: t.Destination, Err: err})
	}

	n, err := SaveSTL(t.Destination, mesh, c.stlOpts...)
	if err != nil {
		utils.Logger.Error("failed to write stl",
			zap.String("target", t.Name),
			zap.String("destination", t.Destination),
			zap.Error(err))
		return failTarget(out, &ConversionError{Kind: KindSerializeIO, Target: t.Name, Destination: t.Destination, Err: err})
	}

	out.Status = model.TargetDone
	out.Vertices = len(mesh.Vertices)
	out.Faces = len(mesh.Faces)
	out.Bytes = n
	utils.Logger.Debug("target written",
		zap.String("target", t.Name),
		zap.String("destination", t.Destination),
		zap.Int("faces", len(mesh.Faces)))
	return nil
}

func failTarget(out *model.TargetResult, err *ConversionError) error {
	out.Status = model.TargetFailed
	out.Error = err.Error()
	return err
}

func canceled(t Target, err error) error {
	return &ConversionError{Kind: KindCanceled, Target: t.Name, Destination: t.Destination, Err: errors.Wrap(err, "conversion aborted")}
}

func (c *Converter) acquire(ctx context.Context) error {
	if c.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queueTimeout)
		defer cancel()
	}
	select {
	case c.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &ConversionError{Kind: KindBusy, Err: errors.Wrap(ctx.Err(), "conversion queue is full")}
	}
}

// WithSource 返回使用另一个掩码来源的 Converter，并发限制与原实例共享
func (c *Converter) WithSource(source MaskSource) *Converter {
	cc := *c
	cc.source = source
	return &cc
}
