package service

import (
	"github.com/TIANLI0/VoxelKit/model"
)

// cubeFaces 每个立方体的 12 个三角面，索引相对于立方体的 8 个顶点。
// 每个四边形都沿第一个和第三个角的对角线切分。
var cubeFaces = [12]model.Face{
	{0, 1, 2}, {0, 2, 3}, // bottom
	{4, 5, 6}, {4, 6, 7}, // top
	{0, 1, 5}, {0, 5, 4},
	{1, 2, 6}, {1, 6, 5},
	{2, 3, 7}, {2, 7, 6},
	{3, 0, 4}, {3, 4, 7},
}

const (
	cubeVertexCount = 8
	cubeFaceCount   = len(cubeFaces)
)

// MeshAssembler 将立方体和子网格拼接到同一个网格缓冲区
type MeshAssembler struct {
	mesh   model.Mesh
	offset uint32
}

// NewMeshAssembler 创建 assembler，cubes 为预估立方体数量
func NewMeshAssembler(cubes int) *MeshAssembler {
	return &MeshAssembler{
		mesh: model.Mesh{
			Vertices: make([]model.Vertex, 0, cubes*cubeVertexCount),
			Faces:    make([]model.Face, 0, cubes*cubeFaceCount),
		},
	}
}

// AddCube 添加一个 [x,x+1]x[y,y+1]x[z0,z1] 的立方体
func (a *MeshAssembler) AddCube(x, y int, z0, z1 float64) {
	fx, fy := float64(x), float64(y)
	a.mesh.Vertices = append(a.mesh.Vertices,
		model.Vertex{fx, fy, z0},
		model.Vertex{fx + 1, fy, z0},
		model.Vertex{fx + 1, fy + 1, z0},
		model.Vertex{fx, fy + 1, z0},
		model.Vertex{fx, fy, z1},
		model.Vertex{fx + 1, fy, z1},
		model.Vertex{fx + 1, fy + 1, z1},
		model.Vertex{fx, fy + 1, z1},
	)
	for _, f := range cubeFaces {
		a.mesh.Faces = append(a.mesh.Faces, model.Face{f[0] + a.offset, f[1] + a.offset, f[2] + a.offset})
	}
	a.offset += cubeVertexCount
}

// Append 拼接另一个网格，面索引按当前顶点数偏移
func (a *MeshAssembler) Append(m *model.Mesh) {
	if m == nil {
		return
	}
	a.mesh.Vertices = append(a.mesh.Vertices, m.Vertices...)
	for _, f := range m.Faces {
		a.mesh.Faces = append(a.mesh.Faces, model.Face{f[0] + a.offset, f[1] + a.offset, f[2] + a.offset})
	}
	a.offset += uint32(len(m.Vertices))
}

// VertexCount 当前已写入的顶点数
func (a *MeshAssembler) VertexCount() int {
	return int(a.offset)
}

// Mesh 返回拼接结果
func (a *MeshAssembler) Mesh() *model.Mesh {
	m := a.mesh
	return &m
}

// MergeMeshes 将多个网格拼成一个
func MergeMeshes(meshes ...*model.Mesh) *model.Mesh {
	var cubes int
	for _, m := range meshes {
		if m != nil {
			cubes += len(m.Vertices) / cubeVertexCount
		}
	}
	a := NewMeshAssembler(cubes)
	for _, m := range meshes {
		a.Append(m)
	}
	return a.Mesh()
}
