// Package wavefront is a small pure-Go conversion engine. It imports
// Wavefront OBJ geometry and exports it as a YAML .lmdl document.
package wavefront

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"modeltool/internal/engine"
	"modeltool/internal/logsink"
	"modeltool/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultFileVersion is written into exported documents.
const DefaultFileVersion = 200

var defaultDiffuse = model.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}

type mesh struct {
	Name     string       `yaml:"name"`
	Material string       `yaml:"material,omitempty"`
	Diffuse  model.Color  `yaml:"diffuse"`
	Specular model.Color  `yaml:"specular"`
	Emissive model.Color  `yaml:"emissive"`
	Vertices [][3]float32 `yaml:"vertices,flow"`
	Indices  []uint32     `yaml:"indices,flow"`

	// corner key -> vertex index
	keys map[string]uint32
}

type document struct {
	Format  string     `yaml:"format"`
	Version int        `yaml:"version"`
	Center  model.Vec3 `yaml:"center"`
	Extent  model.Vec3 `yaml:"extent"`
	Radius  float32    `yaml:"radius"`
	Meshes  []*mesh    `yaml:"meshes"`
}

// Library is an engine.Native backed by an in-process handle table.
type Library struct {
	mu      sync.Mutex
	version int
	models  []*document
	logs    []logsink.Record
}

var _ engine.Native = (*Library)(nil)

// New creates a library that stamps exports with version.
func New(version int) *Library {
	if version <= 0 {
		version = DefaultFileVersion
	}
	return &Library{version: version}
}

// Extensions lists the formats this library imports.
func (l *Library) Extensions() []string {
	return []string{".obj"}
}

// ImportFromBuffer parses OBJ data into a new table slot.
func (l *Library) ImportFromBuffer(data []byte, hint string) engine.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	if hint != "" && !strings.EqualFold(hint, ".obj") {
		l.logf(logsink.Error, "no importer registered for %q", hint)
		return engine.InvalidHandle
	}
	doc, err := l.parse(string(data))
	if err != nil {
		l.logf(logsink.Error, "import failed: %v", err)
		return engine.InvalidHandle
	}

	var verts, inds int
	for _, m := range doc.Meshes {
		verts += len(m.Vertices)
		inds += len(m.Indices)
		l.logf(logsink.Debug, "mesh %q: %d vertices, %d indices", m.Name, len(m.Vertices), len(m.Indices))
	}
	l.logf(logsink.Info, "imported %d meshes (%d vertices, %d indices)", len(doc.Meshes), verts, inds)

	for i, slot := range l.models {
		if slot == nil {
			l.models[i] = doc
			return engine.Handle(i)
		}
	}
	l.models = append(l.models, doc)
	return engine.Handle(len(l.models) - 1)
}

func (l *Library) parse(src string) (*document, error) {
	var positions [][3]float32
	var meshes []*mesh
	var cur *mesh
	object, group, material := "default", "", ""

	start := func() {
		name := object
		if group != "" {
			name += "/" + group
		}
		cur = &mesh{
			Name:     name,
			Material: material,
			Diffuse:  defaultDiffuse,
			Specular: model.Color{A: 1},
			Emissive: model.Color{A: 1},
			keys:     make(map[string]uint32),
		}
		meshes = append(meshes, cur)
	}

	for lineNo, line := range strings.Split(src, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo+1)
			}
			var p [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
				p[i] = float32(f)
			}
			positions = append(positions, p)
		case "o":
			object, group = strings.Join(fields[1:], " "), ""
			cur = nil
		case "g":
			group = strings.Join(fields[1:], " ")
			cur = nil
		case "usemtl":
			material = strings.Join(fields[1:], " ")
			cur = nil
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo+1)
			}
			if cur == nil {
				start()
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				idx, err := resolve(tok, len(positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
				key := strconv.Itoa(idx)
				if i := strings.IndexByte(tok, '/'); i >= 0 {
					key += tok[i:]
				}
				v, ok := cur.keys[key]
				if !ok {
					v = uint32(len(cur.Vertices))
					cur.keys[key] = v
					cur.Vertices = append(cur.Vertices, positions[idx])
				}
				corners = append(corners, v)
			}
			// fan triangulation
			for i := 1; i+1 < len(corners); i++ {
				cur.Indices = append(cur.Indices, corners[0], corners[i], corners[i+1])
			}
		case "vt", "vn", "s", "mtllib", "l", "p":
			l.logf(logsink.Verbose, "line %d: %q ignored", lineNo+1, fields[0])
		default:
			l.logf(logsink.Warning, "line %d: unknown statement %q", lineNo+1, fields[0])
		}
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("no faces found")
	}

	doc := &document{Format: "lmdl", Version: l.version, Meshes: meshes}
	doc.Center, doc.Extent, doc.Radius = bounds(meshes)
	return doc, nil
}

// resolve turns an OBJ face corner ("7", "7/1", "-1//3") into a position index.
func resolve(tok string, count int) (int, error) {
	pos := tok
	if i := strings.IndexByte(tok, '/'); i >= 0 {
		pos = tok[:i]
	}
	n, err := strconv.Atoi(pos)
	if err != nil {
		return 0, fmt.Errorf("bad face corner %q", tok)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += count
	default:
		return 0, fmt.Errorf("bad face corner %q", tok)
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("face corner %q out of range", tok)
	}
	return n, nil
}

func bounds(meshes []*mesh) (center, extent model.Vec3, radius float32) {
	lo := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, m := range meshes {
		for _, v := range m.Vertices {
			for i := 0; i < 3; i++ {
				if v[i] < lo[i] {
					lo[i] = v[i]
				}
				if v[i] > hi[i] {
					hi[i] = v[i]
				}
			}
		}
	}
	center = model.Vec3{X: (lo[0] + hi[0]) / 2, Y: (lo[1] + hi[1]) / 2, Z: (lo[2] + hi[2]) / 2}
	extent = model.Vec3{X: (hi[0] - lo[0]) / 2, Y: (hi[1] - lo[1]) / 2, Z: (hi[2] - lo[2]) / 2}

	var r2 float64
	for _, m := range meshes {
		for _, v := range m.Vertices {
			dx := float64(v[0] - center.X)
			dy := float64(v[1] - center.Y)
			dz := float64(v[2] - center.Z)
			if d := dx*dx + dy*dy + dz*dz; d > r2 {
				r2 = d
			}
		}
	}
	return center, extent, float32(math.Sqrt(r2))
}

func (l *Library) get(h engine.Handle) *document {
	if !h.Valid() || int(h) >= len(l.models) {
		return nil
	}
	return l.models[h]
}

func (l *Library) mesh(h engine.Handle, i int) *mesh {
	doc := l.get(h)
	if doc == nil || i < 0 || i >= len(doc.Meshes) {
		return nil
	}
	return doc.Meshes[i]
}

// ExportedSize encodes h and returns the encoding's length.
func (l *Library) ExportedSize(h engine.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out, err := l.encode(h)
	if err != nil {
		l.logf(logsink.Error, "export failed: %v", err)
		return -1
	}
	return len(out)
}

// Export encodes h into dst.
func (l *Library) Export(h engine.Handle, dst []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	out, err := l.encode(h)
	if err != nil {
		l.logf(logsink.Error, "export failed: %v", err)
		return false
	}
	if len(dst) != len(out) {
		l.logf(logsink.Error, "export buffer is %d bytes, need %d", len(dst), len(out))
		return false
	}
	copy(dst, out)
	l.logf(logsink.Info, "exported %d bytes", len(out))
	return true
}

func (l *Library) encode(h engine.Handle) ([]byte, error) {
	doc := l.get(h)
	if doc == nil {
		return nil, fmt.Errorf("unknown handle %s", h)
	}
	return yaml.Marshal(doc)
}

func (l *Library) MeshCount(h engine.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc := l.get(h); doc != nil {
		return len(doc.Meshes)
	}
	return 0
}

func (l *Library) MeshVertexCount(h engine.Handle, i int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m := l.mesh(h, i); m != nil {
		return len(m.Vertices)
	}
	return 0
}

func (l *Library) MeshIndexCount(h engine.Handle, i int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m := l.mesh(h, i); m != nil {
		return len(m.Indices)
	}
	return 0
}

func (l *Library) MeshMaterialColor(h engine.Handle, i int, kind engine.ColorKind) model.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.mesh(h, i)
	if m == nil {
		return model.Color{}
	}
	switch kind {
	case engine.DiffuseColor:
		return m.Diffuse
	case engine.SpecularColor:
		return m.Specular
	case engine.EmissiveColor:
		return m.Emissive
	default:
		return model.Color{}
	}
}

// MeshTextureRef always returns "": material libraries are not loaded.
func (l *Library) MeshTextureRef(engine.Handle, int, engine.TextureKind) string {
	return ""
}

func (l *Library) Bounds(h engine.Handle) model.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc := l.get(h); doc != nil {
		return doc.Extent
	}
	return model.Vec3{}
}

func (l *Library) Center(h engine.Handle) model.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc := l.get(h); doc != nil {
		return doc.Center
	}
	return model.Vec3{}
}

func (l *Library) Radius(h engine.Handle) float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc := l.get(h); doc != nil {
		return doc.Radius
	}
	return 0
}

// Release frees h's slot for reuse.
func (l *Library) Release(h engine.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.get(h) != nil {
		l.models[h] = nil
	}
}

// DrainLogs returns and forgets pending diagnostics.
func (l *Library) DrainLogs() []logsink.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.logs
	l.logs = nil
	return out
}

func (l *Library) logf(sev logsink.Severity, format string, args ...interface{}) {
	l.logs = append(l.logs, logsink.Record{Text: fmt.Sprintf(format, args...), Severity: sev})
}
