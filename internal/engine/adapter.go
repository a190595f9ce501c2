package engine

import (
	"fmt"
	"sort"
	"sync"

	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/model"
)

// Adapter serializes access to a Native engine, tracks the handles it has
// handed out and turns sentinel results into typed errors.
type Adapter struct {
	mu     sync.Mutex
	native Native
	live   map[Handle]struct{}
}

var _ logsink.Drainer = (*Adapter)(nil)

// NewAdapter wraps native.
func NewAdapter(native Native) *Adapter {
	return &Adapter{
		native: native,
		live:   make(map[Handle]struct{}),
	}
}

// Import loads data into the engine. hint is the source file extension.
func (a *Adapter) Import(data []byte, hint string) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.native.ImportFromBuffer(data, hint)
	if !h.Valid() {
		return InvalidHandle, errors.NewEngineError("import failed", int(h), errors.ImportFailure, nil)
	}
	a.live[h] = struct{}{}
	log.LogWithFields(log.F("handle", int(h)), log.F("bytes", len(data)), log.F("hint", hint)).Debug("Engine import complete")
	return h, nil
}

// Export returns the native encoding of h. The buffer is complete before
// Export returns.
func (a *Adapter) Export(h Handle) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkLocked(h); err != nil {
		return nil, err
	}
	size := a.native.ExportedSize(h)
	if size < 0 {
		return nil, errors.NewEngineError("export failed", int(h), errors.ExportFailure, nil)
	}
	buf := make([]byte, size)
	if !a.native.Export(h, buf) {
		return nil, errors.NewEngineError("export failed", int(h), errors.ExportFailure, nil)
	}
	return buf, nil
}

// Describe builds a model description for h.
func (a *Adapter) Describe(h Handle, version int) (*model.Description, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkLocked(h); err != nil {
		return nil, err
	}
	n := a.native
	d := model.NewDescription("", version)
	d.Bounds = model.Bounds{
		Center: n.Center(h),
		Extent: n.Bounds(h),
		Radius: n.Radius(h),
	}
	count := n.MeshCount(h)
	if count < 0 {
		return nil, errors.NewEngineError(fmt.Sprintf("invalid mesh count %d", count), int(h), errors.ImportFailure, nil)
	}
	for i := 0; i < count; i++ {
		d.AddMesh(model.Mesh{
			VertexCount:     n.MeshVertexCount(h, i),
			IndexCount:      n.MeshIndexCount(h, i),
			Diffuse:         clampColor(n.MeshMaterialColor(h, i, DiffuseColor)),
			Specular:        clampColor(n.MeshMaterialColor(h, i, SpecularColor)),
			Emissive:        clampColor(n.MeshMaterialColor(h, i, EmissiveColor)),
			DiffuseTexture:  n.MeshTextureRef(h, i, DiffuseTexture),
			SpecularTexture: n.MeshTextureRef(h, i, SpecularTexture),
			NormalTexture:   n.MeshTextureRef(h, i, NormalTexture),
			GlowTexture:     n.MeshTextureRef(h, i, GlowTexture),
		})
	}
	return d, nil
}

func clampColor(c model.Color) model.Color {
	return model.NewColor(c.R, c.G, c.B, c.A)
}

// Release frees h. Releasing an invalid or unknown handle is a no-op.
func (a *Adapter) Release(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.live[h]; !ok {
		return
	}
	delete(a.live, h)
	a.native.Release(h)
	log.LogWithFields(log.F("handle", int(h))).Debug("Engine handle released")
}

// Live returns the handles not yet released, in ascending order.
func (a *Adapter) Live() []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Handle, 0, len(a.live))
	for h := range a.live {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close releases every live handle.
func (a *Adapter) Close() {
	for _, h := range a.Live() {
		a.Release(h)
	}
}

// DrainLogs forwards the engine's pending diagnostics.
func (a *Adapter) DrainLogs() []logsink.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.native.DrainLogs()
}

// Extensions lists the engine's importable extensions.
func (a *Adapter) Extensions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.native.Extensions()
}

func (a *Adapter) checkLocked(h Handle) error {
	if _, ok := a.live[h]; !ok {
		return errors.NewEngineError("unknown model handle", int(h), errors.InvalidOperation, nil)
	}
	return nil
}
