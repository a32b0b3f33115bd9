package service

import (
	"testing"

	"github.com/TIANLI0/VoxelKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshAssemblerOffset(t *testing.T) {
	a := NewMeshAssembler(2)
	a.AddCube(0, 0, 0, 1)
	assert.Equal(t, 8, a.VertexCount())
	a.AddCube(3, 4, 1, 2)
	assert.Equal(t, 16, a.VertexCount())

	m := a.Mesh()
	require.NoError(t, m.Validate())
	assert.Equal(t, model.Vertex{3, 4, 1}, m.Vertices[8])
	assert.Equal(t, model.Vertex{4, 5, 2}, m.Vertices[14])
	assert.Equal(t, model.Face{8, 9, 10}, m.Faces[12])
}

func TestMeshAssemblerAppend(t *testing.T) {
	mask := checkerMask(t, 7, 5)
	first, err := Extrude(mask, model.ExtrusionSpec{Height: 2})
	require.NoError(t, err)
	second, err := Extrude(mask, model.ExtrusionSpec{Height: 1, BaseThickness: 2, Polarity: model.Background})
	require.NoError(t, err)

	merged := MergeMeshes(first, nil, second)
	require.NoError(t, merged.Validate())
	require.Len(t, merged.Vertices, len(first.Vertices)+len(second.Vertices))
	require.Len(t, merged.Faces, len(first.Faces)+len(second.Faces))

	off := uint32(len(first.Vertices))
	for i, f := range second.Faces {
		g := merged.Faces[len(first.Faces)+i]
		assert.Equal(t, model.Face{f[0] + off, f[1] + off, f[2] + off}, g)
	}
	assert.Equal(t, first.Faces, merged.Faces[:len(first.Faces)])
}

func TestExtrudeAll(t *testing.T) {
	mask := filledMask(t, 2, 1, true)
	m, err := ExtrudeAll(mask,
		model.ExtrusionSpec{Height: 1},
		model.ExtrusionSpec{Height: 1, BaseThickness: 1},
	)
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 32)
	assert.Len(t, m.Faces, 48)
	require.NoError(t, m.Validate())

	_, err = ExtrudeAll(mask, model.ExtrusionSpec{Height: 1}, model.ExtrusionSpec{})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
