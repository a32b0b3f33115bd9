package service

import (
	"context"
	"image"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// EdgeMaskSource 模糊 + Sobel 边缘 + 闭运算 + 固定阈值
type EdgeMaskSource struct {
	threshold float32
	blurSize  int
	closeSize int
	invert    bool
}

func NewEdgeMaskSource(cfg config.MaskConfig) *EdgeMaskSource {
	return &EdgeMaskSource{
		threshold: float32(cfg.Threshold),
		blurSize:  oddAtLeast(cfg.BlurSize, 1),
		closeSize: max(cfg.CloseSize, 1),
		invert:    cfg.Invert,
	}
}

// Mask 实现 MaskSource
func (s *EdgeMaskSource) Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray, err := readGray(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	edges := s.EdgeMap(&gray)
	defer edges.Close()

	return matToMask(&edges), nil
}

// EdgeMap 返回二值化后的边缘图 (0/255)，invert 为真时边缘为 0
func (s *EdgeMaskSource) EdgeMap(gray *gocv.Mat) gocv.Mat {
	blurred := s.blur(gray)
	defer blurred.Close()

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()
	gocv.Sobel(blurred, &gradX, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(blurred, &gradY, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	magnitude := gocv.NewMat()
	defer magnitude.Close()
	gocv.Magnitude(gradX, gradY, &magnitude)

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.ConvertScaleAbs(magnitude, &scaled, 1, 0)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: s.closeSize, Y: s.closeSize})
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(scaled, &closed, gocv.MorphClose, kernel)

	final := gocv.NewMat()
	gocv.Threshold(closed, &final, s.threshold, 255, gocv.ThresholdBinary)
	if s.invert {
		gocv.BitwiseNot(final, &final)
	}
	return final
}

func (s *EdgeMaskSource) blur(gray *gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	gocv.GaussianBlur(*gray, &blurred, image.Point{X: s.blurSize, Y: s.blurSize}, 0, 0, gocv.BorderDefault)
	return blurred
}

// Preview 返回边缘图的 PNG 编码
func (s *EdgeMaskSource) Preview(src ImageSource) ([]byte, error) {
	gray, err := readGray(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	edges := s.EdgeMap(&gray)
	defer edges.Close()

	return encodePNG(edges)
}

// BlurPreview 返回高斯模糊后灰度图的 PNG 编码，不做边缘检测
func (s *EdgeMaskSource) BlurPreview(src ImageSource) ([]byte, error) {
	gray, err := readGray(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	blurred := s.blur(&gray)
	defer blurred.Close()

	return encodePNG(blurred)
}

func encodePNG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// AdaptiveMaskSource 局部自适应阈值
type AdaptiveMaskSource struct {
	blockSize int
	c         float32
	blurSize  int
	invert    bool
}

func NewAdaptiveMaskSource(cfg config.MaskConfig) *AdaptiveMaskSource {
	return &AdaptiveMaskSource{
		blockSize: oddAtLeast(cfg.BlockSize, 3),
		c:         float32(cfg.C),
		blurSize:  oddAtLeast(cfg.BlurSize, 1),
		invert:    cfg.Invert,
	}
}

// Mask 实现 MaskSource，暗于局部均值的像素为实心
func (s *AdaptiveMaskSource) Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray, err := readGray(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: s.blurSize, Y: s.blurSize}, 0, 0, gocv.BorderDefault)

	bin := gocv.NewMat()
	defer bin.Close()
	typ := gocv.ThresholdBinaryInv
	if s.invert {
		typ = gocv.ThresholdBinary
	}
	gocv.AdaptiveThreshold(blurred, &bin, 255, gocv.AdaptiveThresholdGaussian, typ, s.blockSize, s.c)

	return matToMask(&bin), nil
}

// OtsuMaskSource 模糊后用 Otsu 自动选取全局阈值，暗像素为实心
type OtsuMaskSource struct {
	blurSize int
	invert   bool
}

func NewOtsuMaskSource(cfg config.MaskConfig) *OtsuMaskSource {
	return &OtsuMaskSource{
		blurSize: oddAtLeast(cfg.BlurSize, 1),
		invert:   cfg.Invert,
	}
}

func (s *OtsuMaskSource) Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray, err := readGray(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: s.blurSize, Y: s.blurSize}, 0, 0, gocv.BorderDefault)

	bin := gocv.NewMat()
	defer bin.Close()
	typ := gocv.ThresholdBinaryInv
	if s.invert {
		typ = gocv.ThresholdBinary
	}
	gocv.Threshold(blurred, &bin, 0, 255, typ+gocv.ThresholdOtsu)

	return matToMask(&bin), nil
}

func readGray(src ImageSource) (gocv.Mat, error) {
	var img gocv.Mat
	if len(src.Data) > 0 {
		m, err := gocv.IMDecode(src.Data, gocv.IMReadGrayScale)
		if err != nil {
			return gocv.Mat{}, errors.Wrap(err, "decode image")
		}
		img = m
	} else {
		img = gocv.IMRead(src.Path, gocv.IMReadGrayScale)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, errors.Errorf("failed to read image %s", src)
	}
	return img, nil
}

// matToMask 非零像素为实心
func matToMask(m *gocv.Mat) *model.BinaryMask {
	rows, cols := m.Rows(), m.Cols()
	cells := make([]bool, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cells[y*cols+x] = m.GetUCharAt(y, x) > 0
		}
	}
	mask, _ := model.NewBinaryMask(cols, rows, cells)
	return mask
}

func oddAtLeast(n, lo int) int {
	n = max(n, lo)
	if n%2 == 0 {
		n++
	}
	return n
}
