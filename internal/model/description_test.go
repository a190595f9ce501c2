package model

import (
	"testing"

	"modeltool/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalsFollowMeshes(t *testing.T) {
	d := NewDescription("/models/ship.obj", 200)
	d.AddMesh(Mesh{VertexCount: 24, IndexCount: 36})
	d.AddMesh(Mesh{VertexCount: 8, IndexCount: 12})
	d.AddMesh(Mesh{VertexCount: 3, IndexCount: 3})

	assert.Equal(t, 3, d.NumMeshes())
	assert.Equal(t, 35, d.TotalVerts())
	assert.Equal(t, 51, d.TotalInds())

	require.NoError(t, d.RemoveMesh(1))
	assert.Equal(t, 2, d.NumMeshes())
	assert.Equal(t, 27, d.TotalVerts())
	assert.Equal(t, 39, d.TotalInds())

	m, ok := d.Mesh(1)
	require.True(t, ok)
	assert.Equal(t, 3, m.VertexCount)
}

func TestRemoveMeshOutOfRange(t *testing.T) {
	d := NewDescription("a.obj", 200)
	d.AddMesh(Mesh{VertexCount: 3})

	err := d.RemoveMesh(1)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidOperation))
	assert.Error(t, d.RemoveMesh(-1))
	assert.Equal(t, 1, d.NumMeshes())
	assert.Equal(t, 3, d.TotalVerts())

	_, ok := d.Mesh(5)
	assert.False(t, ok)
}

func TestMeshesReturnsCopy(t *testing.T) {
	d := NewDescription("a.obj", 200)
	d.AddMesh(Mesh{VertexCount: 3})
	meshes := d.Meshes()
	meshes[0].VertexCount = 99
	m, _ := d.Mesh(0)
	assert.Equal(t, 3, m.VertexCount)
}

func TestColorClamp(t *testing.T) {
	c := NewColor(-0.5, 0.25, 1.5, 1)
	assert.Equal(t, Color{R: 0, G: 0.25, B: 1, A: 1}, c)
	assert.Equal(t, "(0.000, 0.250, 1.000, 1.000)", c.String())
}

func TestTextureLabel(t *testing.T) {
	assert.Equal(t, NoTexture, TextureLabel(""))
	assert.Equal(t, "hull_d.png", TextureLabel("hull_d.png"))
}

func TestRepositoryReplaceDropsPreviousMeshes(t *testing.T) {
	r := NewRepository()
	assert.False(t, r.Loaded())
	assert.Nil(t, r.Current())

	first := NewDescription("a.obj", 200)
	for i := 0; i < 4; i++ {
		first.AddMesh(Mesh{VertexCount: 3})
	}
	r.Replace(first)

	second := NewDescription("a.obj", 200)
	second.AddMesh(Mesh{VertexCount: 8})
	r.Replace(second)

	require.True(t, r.Loaded())
	assert.Equal(t, 1, r.Current().NumMeshes())
	assert.Equal(t, 8, r.Current().TotalVerts())

	r.Clear()
	assert.False(t, r.Loaded())
}
