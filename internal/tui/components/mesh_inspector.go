package components

import (
	"fmt"
	"path/filepath"
	"strings"

	"modeltool/internal/model"
	"modeltool/internal/tui/styles"
)

// MeshInspector shows the loaded model's totals and one selected mesh.
type MeshInspector struct {
	desc     *model.Description
	selected int
	theme    styles.Theme
}

func NewMeshInspector(theme styles.Theme) *MeshInspector {
	return &MeshInspector{theme: theme}
}

// SetModel replaces the model; the selection resets to the first mesh.
func (mi *MeshInspector) SetModel(d *model.Description) {
	mi.desc = d
	mi.selected = 0
}

func (mi *MeshInspector) Model() *model.Description {
	return mi.desc
}

// Select moves the selection to idx when it names a mesh.
func (mi *MeshInspector) Select(idx int) bool {
	if mi.desc == nil || idx < 0 || idx >= mi.desc.NumMeshes() {
		return false
	}
	mi.selected = idx
	return true
}

func (mi *MeshInspector) Selected() int {
	return mi.selected
}

func (mi *MeshInspector) View() string {
	var s strings.Builder
	s.WriteString(mi.theme.Title.Render("Model") + "\n")

	if mi.desc == nil {
		s.WriteString(mi.theme.Unselected.Render("No model loaded") + "\n")
		return s.String()
	}
	d := mi.desc
	mi.row(&s, "File", filepath.Base(d.Path))
	mi.row(&s, "Version", fmt.Sprint(d.FileVersion))
	mi.row(&s, "Meshes", fmt.Sprint(d.NumMeshes()))
	mi.row(&s, "Vertices", fmt.Sprint(d.TotalVerts()))
	mi.row(&s, "Indices", fmt.Sprint(d.TotalInds()))
	mi.row(&s, "Center", vec(d.Bounds.Center))
	mi.row(&s, "Extent", vec(d.Bounds.Extent))
	mi.row(&s, "Radius", fmt.Sprintf("%.3f", d.Bounds.Radius))

	m, ok := d.Mesh(mi.selected)
	if !ok {
		return s.String()
	}
	s.WriteString("\n" + mi.theme.Title.Render(fmt.Sprintf("Mesh %d/%d", mi.selected+1, d.NumMeshes())) + "\n")
	mi.row(&s, "Vertices", fmt.Sprint(m.VertexCount))
	mi.row(&s, "Indices", fmt.Sprint(m.IndexCount))
	mi.row(&s, "Diffuse", m.Diffuse.String())
	mi.row(&s, "Specular", m.Specular.String())
	mi.row(&s, "Emissive", m.Emissive.String())
	mi.row(&s, "Diffuse map", model.TextureLabel(m.DiffuseTexture))
	mi.row(&s, "Specular map", model.TextureLabel(m.SpecularTexture))
	mi.row(&s, "Normal map", model.TextureLabel(m.NormalTexture))
	mi.row(&s, "Glow map", model.TextureLabel(m.GlowTexture))
	return s.String()
}

func (mi *MeshInspector) row(s *strings.Builder, label, value string) {
	fmt.Fprintf(s, "%s %s\n", mi.theme.Label.Render(fmt.Sprintf("%-13s", label+":")), value)
}

func vec(v model.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
