package model

import (
	"fmt"
	"math"
	"strings"
)

// Polarity 挤出极性
type Polarity int

const (
	Foreground Polarity = iota
	Background
)

func (p Polarity) String() string {
	if p == Background {
		return "background"
	}
	return "foreground"
}

// ParsePolarity 解析 "foreground" / "background"
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "foreground", "fg":
		return Foreground, nil
	case "background", "bg":
		return Background, nil
	}
	return Foreground, fmt.Errorf("unknown polarity %q", s)
}

func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Polarity) UnmarshalText(b []byte) error {
	v, err := ParsePolarity(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ExtrusionSpec 挤出参数
type ExtrusionSpec struct {
	Height        float64  `json:"height"`
	BaseThickness float64  `json:"base_thickness"`
	Polarity      Polarity `json:"polarity"`
}

// ZStart 底面高度
func (s ExtrusionSpec) ZStart() float64 {
	return s.BaseThickness
}

// ZEnd 顶面高度
func (s ExtrusionSpec) ZEnd() float64 {
	return s.BaseThickness + s.Height
}

func (s ExtrusionSpec) Validate() error {
	if !(s.Height > 0) {
		return fmt.Errorf("height must be > 0, got %v", s.Height)
	}
	if !(s.BaseThickness >= 0) {
		return fmt.Errorf("base thickness must be >= 0, got %v", s.BaseThickness)
	}
	// 顶点以 float32 写入 STL，超出范围会变成 Inf
	if z := s.ZEnd(); math.IsInf(z, 0) || math.IsNaN(z) || z > math.MaxFloat32 {
		return fmt.Errorf("top height %v exceeds float32 range", z)
	}
	return nil
}
