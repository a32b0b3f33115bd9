package service

import (
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/pkg/errors"
)

// Extrude 将掩码中每个实心像素挤出为 [z_start, z_end) 之间的单位立方体。
//
// 按行优先顺序处理，相邻立方体之间共享的内壁不合并。
// Background 极性在读取时取反，不修改 mask。零面积掩码返回空网格。
func Extrude(mask *model.BinaryMask, spec model.ExtrusionSpec) (*model.Mesh, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidSpec, err.Error())
	}
	if mask.Empty() {
		return &model.Mesh{}, nil
	}

	z0, z1 := spec.ZStart(), spec.ZEnd()
	a := NewMeshAssembler(mask.CountSolid(spec.Polarity))
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.Cell(x, y, spec.Polarity) {
				a.AddCube(x, y, z0, z1)
			}
		}
	}
	return a.Mesh(), nil
}

// ExtrudeAll 按顺序挤出多个参数并合并为一个网格
func ExtrudeAll(mask *model.BinaryMask, specs ...model.ExtrusionSpec) (*model.Mesh, error) {
	meshes := make([]*model.Mesh, 0, len(specs))
	for i, s := range specs {
		m, err := Extrude(mask, s)
		if err != nil {
			return nil, errors.Wrapf(err, "extrusion %d", i)
		}
		meshes = append(meshes, m)
	}
	return MergeMeshes(meshes...), nil
}
