package testutils

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"modeltool/internal/engine"
	"modeltool/internal/logsink"
	"modeltool/internal/model"
)

// FailMarker makes StubEngine reject any buffer containing it.
const FailMarker = "FAIL"

// StubEngine is an engine.Native for tests. A buffer is a list of
// "mesh <vertices> <indices>" lines; a buffer without such lines imports as
// one triangle.
type StubEngine struct {
	mu       sync.Mutex
	models   map[engine.Handle]*stubModel
	next     engine.Handle
	logs     []logsink.Record
	released []engine.Handle

	// Entered, when set, receives a value as each import starts.
	Entered chan struct{}
	// Gate, when set, blocks each import until it yields a value or closes.
	Gate chan struct{}
	// FailExport makes every export fail.
	FailExport bool
}

type stubModel struct {
	data   []byte
	meshes [][2]int
}

var _ engine.Native = (*StubEngine)(nil)

// NewStubEngine creates an empty stub.
func NewStubEngine() *StubEngine {
	return &StubEngine{models: make(map[engine.Handle]*stubModel)}
}

// MeshBuffer renders mesh definitions in the stub's buffer format.
func MeshBuffer(meshes ...[2]int) string {
	var b strings.Builder
	for _, m := range meshes {
		fmt.Fprintf(&b, "mesh %d %d\n", m[0], m[1])
	}
	return b.String()
}

func (s *StubEngine) ImportFromBuffer(data []byte, hint string) engine.Handle {
	if s.Entered != nil {
		s.Entered <- struct{}{}
	}
	if s.Gate != nil {
		<-s.Gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bytes.Contains(data, []byte(FailMarker)) {
		s.logf(logsink.Error, "cannot parse %s buffer", hint)
		return engine.InvalidHandle
	}
	m := &stubModel{data: append([]byte(nil), data...)}
	for _, line := range strings.Split(string(data), "\n") {
		f := strings.Fields(line)
		if len(f) != 3 || f[0] != "mesh" {
			continue
		}
		v, err1 := strconv.Atoi(f[1])
		i, err2 := strconv.Atoi(f[2])
		if err1 != nil || err2 != nil {
			continue
		}
		m.meshes = append(m.meshes, [2]int{v, i})
	}
	if len(m.meshes) == 0 {
		m.meshes = [][2]int{{3, 3}}
	}

	h := s.next
	s.next++
	s.models[h] = m
	s.logf(logsink.Info, "imported %d meshes", len(m.meshes))
	return h
}

func (s *StubEngine) ExportedSize(h engine.Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[h]
	if !ok || s.FailExport {
		s.logf(logsink.Error, "export of %s failed", h)
		return -1
	}
	return len("lmdl:") + len(m.data)
}

func (s *StubEngine) Export(h engine.Handle, dst []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[h]
	if !ok {
		return false
	}
	copy(dst, append([]byte("lmdl:"), m.data...))
	return true
}

func (s *StubEngine) mesh(h engine.Handle, i int) ([2]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[h]
	if !ok || i < 0 || i >= len(m.meshes) {
		return [2]int{}, false
	}
	return m.meshes[i], true
}

func (s *StubEngine) MeshCount(h engine.Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[h]; ok {
		return len(m.meshes)
	}
	return 0
}

func (s *StubEngine) MeshVertexCount(h engine.Handle, i int) int {
	m, _ := s.mesh(h, i)
	return m[0]
}

func (s *StubEngine) MeshIndexCount(h engine.Handle, i int) int {
	m, _ := s.mesh(h, i)
	return m[1]
}

func (s *StubEngine) MeshMaterialColor(engine.Handle, int, engine.ColorKind) model.Color {
	return model.Color{R: 1, G: 1, B: 1, A: 1}
}

func (s *StubEngine) MeshTextureRef(_ engine.Handle, _ int, kind engine.TextureKind) string {
	if kind == engine.DiffuseTexture {
		return "diffuse.png"
	}
	return ""
}

func (s *StubEngine) Bounds(engine.Handle) model.Vec3 { return model.Vec3{X: 1, Y: 1, Z: 1} }
func (s *StubEngine) Center(engine.Handle) model.Vec3 { return model.Vec3{} }
func (s *StubEngine) Radius(engine.Handle) float32    { return 1.732 }
func (s *StubEngine) Extensions() []string            { return []string{".obj"} }

func (s *StubEngine) Release(h engine.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, h)
	s.released = append(s.released, h)
}

// Released returns every handle released so far, in order.
func (s *StubEngine) Released() []engine.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.Handle(nil), s.released...)
}

// LiveCount returns the number of loaded models.
func (s *StubEngine) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

func (s *StubEngine) DrainLogs() []logsink.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.logs
	s.logs = nil
	return out
}

func (s *StubEngine) logf(sev logsink.Severity, format string, args ...interface{}) {
	s.logs = append(s.logs, logsink.Record{Text: fmt.Sprintf(format, args...), Severity: sev})
}
