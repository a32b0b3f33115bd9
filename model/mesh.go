package model

import (
	"fmt"

	"github.com/ungerik/go3d/float64/vec3"
)

// Vertex 网格顶点，单位为掩码像素
type Vertex = vec3.T

// Face 三角面，三个顶点索引
type Face [3]uint32

// Mesh 三角网格，允许重复顶点
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
}

// Validate 检查所有面索引都落在顶点列表内
func (m *Mesh) Validate() error {
	n := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// Triangle 返回第 i 个面的三个顶点坐标
func (m *Mesh) Triangle(i int) (a, b, c Vertex) {
	f := m.Faces[i]
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}
