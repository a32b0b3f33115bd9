package model

import "fmt"

// BinaryMask 二值掩码，行优先，原点在左上角
type BinaryMask struct {
	Width  int
	Height int
	cells  []bool
}

// NewBinaryMask 根据行优先的单元格创建掩码，cells 会被复制
func NewBinaryMask(width, height int, cells []bool) (*BinaryMask, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("mask size %dx%d needs %d cells, got %d", width, height, width*height, len(cells))
	}
	c := make([]bool, len(cells))
	copy(c, cells)
	return &BinaryMask{Width: width, Height: height, cells: c}, nil
}

// MaskFromRows 从二维数组创建掩码，所有行长度必须一致
func MaskFromRows(rows [][]bool) (*BinaryMask, error) {
	if len(rows) == 0 {
		return &BinaryMask{}, nil
	}
	width := len(rows[0])
	cells := make([]bool, 0, width*len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), width)
		}
		cells = append(cells, row...)
	}
	return NewBinaryMask(width, len(rows), cells)
}

// Empty 面积为零
func (m *BinaryMask) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0
}

// At 返回 (x, y) 处是否为实心
func (m *BinaryMask) At(x, y int) bool {
	return m.cells[y*m.Width+x]
}

// Cell 按极性读取单元格，不修改掩码本身
func (m *BinaryMask) Cell(x, y int, p Polarity) bool {
	v := m.At(x, y)
	if p == Background {
		return !v
	}
	return v
}

// Complement 返回逻辑取反后的新掩码
func (m *BinaryMask) Complement() *BinaryMask {
	c := make([]bool, len(m.cells))
	for i, v := range m.cells {
		c[i] = !v
	}
	return &BinaryMask{Width: m.Width, Height: m.Height, cells: c}
}

// CountSolid 统计某一极性下的实心单元格数量
func (m *BinaryMask) CountSolid(p Polarity) int {
	n := 0
	for _, v := range m.cells {
		if v != (p == Background) {
			n++
		}
	}
	return n
}
