package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/TIANLI0/VoxelKit/model"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LumaMaskSource 纯 Go 实现：灰度低于阈值的像素为实心
type LumaMaskSource struct {
	threshold uint8
	invert    bool
}

func NewLumaMaskSource(threshold uint8, invert bool) *LumaMaskSource {
	return &LumaMaskSource{threshold: threshold, invert: invert}
}

func (s *LumaMaskSource) Mask(ctx context.Context, src ImageSource) (*model.BinaryMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r io.Reader
	if len(src.Data) > 0 {
		r = bytes.NewReader(src.Data)
	} else {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open image")
		}
		defer f.Close()
		r = f
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return s.FromImage(img), nil
}

// FromImage 二值化已解码的图片
func (s *LumaMaskSource) FromImage(img image.Image) *model.BinaryMask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cells := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			cells[y*w+x] = (g.Y < s.threshold) != s.invert
		}
	}
	mask, _ := model.NewBinaryMask(w, h, cells)
	return mask
}
