// Package model holds the description of the currently loaded model.
package model

import (
	"fmt"
	"sync"

	"modeltool/internal/errors"
)

// NoTexture is displayed for an empty texture reference.
const NoTexture = "(none)"

// Vec3 is a point or extent in model space.
type Vec3 struct {
	X float32 `yaml:"x" json:"x"`
	Y float32 `yaml:"y" json:"y"`
	Z float32 `yaml:"z" json:"z"`
}

// Color is an RGBA color with components in [0,1].
type Color struct {
	R float32 `yaml:"r" json:"r"`
	G float32 `yaml:"g" json:"g"`
	B float32 `yaml:"b" json:"b"`
	A float32 `yaml:"a" json:"a"`
}

// NewColor builds a color, clamping each component to [0,1].
func NewColor(r, g, b, a float32) Color {
	return Color{R: clamp(r), G: clamp(g), B: clamp(b), A: clamp(a)}
}

// String formats the color as four fixed-point components.
func (c Color) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", c.R, c.G, c.B, c.A)
}

func clamp(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Mesh describes one mesh of a loaded model.
type Mesh struct {
	VertexCount int   `json:"vertex_count"`
	IndexCount  int   `json:"index_count"`
	Diffuse     Color `json:"diffuse"`
	Specular    Color `json:"specular"`
	Emissive    Color `json:"emissive"`

	DiffuseTexture  string `json:"diffuse_texture,omitempty"`
	SpecularTexture string `json:"specular_texture,omitempty"`
	NormalTexture   string `json:"normal_texture,omitempty"`
	GlowTexture     string `json:"glow_texture,omitempty"`
}

// TextureLabel returns ref, or NoTexture when it is empty.
func TextureLabel(ref string) string {
	if ref == "" {
		return NoTexture
	}
	return ref
}

// Bounds is the model's axis-aligned bounding volume.
type Bounds struct {
	Center Vec3    `json:"center"`
	Extent Vec3    `json:"extent"`
	Radius float32 `json:"radius"`
}

// Description is a snapshot of a model's structure. Totals are kept in step
// with the mesh list by AddMesh and RemoveMesh.
type Description struct {
	Path        string `json:"path"`
	FileVersion int    `json:"file_version"`
	Bounds      Bounds `json:"bounds"`

	meshes     []Mesh
	totalVerts int
	totalInds  int
}

// NewDescription creates an empty description.
func NewDescription(path string, version int) *Description {
	return &Description{Path: path, FileVersion: version}
}

// AddMesh appends m and updates the totals.
func (d *Description) AddMesh(m Mesh) {
	d.meshes = append(d.meshes, m)
	d.totalVerts += m.VertexCount
	d.totalInds += m.IndexCount
}

// RemoveMesh deletes the mesh at idx and updates the totals.
func (d *Description) RemoveMesh(idx int) error {
	if idx < 0 || idx >= len(d.meshes) {
		return errors.NewKindError(fmt.Sprintf("mesh index %d out of range [0,%d)", idx, len(d.meshes)), errors.InvalidOperation, nil)
	}
	m := d.meshes[idx]
	d.totalVerts -= m.VertexCount
	d.totalInds -= m.IndexCount
	d.meshes = append(d.meshes[:idx], d.meshes[idx+1:]...)
	return nil
}

// Mesh returns the mesh at idx.
func (d *Description) Mesh(idx int) (Mesh, bool) {
	if idx < 0 || idx >= len(d.meshes) {
		return Mesh{}, false
	}
	return d.meshes[idx], true
}

// Meshes returns a copy of the mesh list.
func (d *Description) Meshes() []Mesh {
	out := make([]Mesh, len(d.meshes))
	copy(out, d.meshes)
	return out
}

func (d *Description) NumMeshes() int  { return len(d.meshes) }
func (d *Description) TotalVerts() int { return d.totalVerts }
func (d *Description) TotalInds() int  { return d.totalInds }

// Repository holds the current model description, if any.
type Repository struct {
	mu      sync.RWMutex
	current *Description
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Current returns the loaded description or nil.
func (r *Repository) Current() *Description {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Replace swaps in d, dropping the previous description entirely.
func (r *Repository) Replace(d *Description) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = d
}

// Clear unloads the current description.
func (r *Repository) Clear() {
	r.Replace(nil)
}

// Loaded reports whether a description is present.
func (r *Repository) Loaded() bool {
	return r.Current() != nil
}
