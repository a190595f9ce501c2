// Package engine is the boundary to the model conversion capability. The
// capability itself is opaque; it is reached only through the Native
// interface and owns every model it loads until the handle is released.
package engine

import (
	"fmt"

	"modeltool/internal/logsink"
	"modeltool/internal/model"
)

// Handle indexes a model in the engine's own table.
type Handle int

// InvalidHandle means "no model". Native importers return a negative handle
// on failure.
const InvalidHandle Handle = -1

// Valid reports whether h may refer to a loaded model.
func (h Handle) Valid() bool {
	return h >= 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("#%d", int(h))
}

// ColorKind selects one of a mesh's material colors.
type ColorKind int

const (
	DiffuseColor ColorKind = iota
	SpecularColor
	EmissiveColor
)

// TextureKind selects one of a mesh's texture references.
type TextureKind int

const (
	DiffuseTexture TextureKind = iota
	SpecularTexture
	NormalTexture
	GlowTexture
)

// Native is the synchronous conversion capability. Calls may block for as
// long as the capability needs; implementations need not be safe for
// concurrent use.
type Native interface {
	// ImportFromBuffer parses data, using hint (a file extension) to pick
	// the importer. It returns a negative handle on failure.
	ImportFromBuffer(data []byte, hint string) Handle
	// ExportedSize returns the size of h's native encoding, or a negative
	// value on failure.
	ExportedSize(h Handle) int
	// Export fills dst, which is ExportedSize bytes long.
	Export(h Handle, dst []byte) bool

	MeshCount(h Handle) int
	MeshVertexCount(h Handle, mesh int) int
	MeshIndexCount(h Handle, mesh int) int
	MeshMaterialColor(h Handle, mesh int, kind ColorKind) model.Color
	MeshTextureRef(h Handle, mesh int, kind TextureKind) string

	// Bounds returns the half extents of the axis-aligned bounding box.
	Bounds(h Handle) model.Vec3
	Center(h Handle) model.Vec3
	Radius(h Handle) float32

	// Release frees h. Using h afterwards is undefined.
	Release(h Handle)
	// DrainLogs returns pending diagnostics and forgets them.
	DrainLogs() []logsink.Record
	// Extensions lists the file extensions the importers recognize.
	Extensions() []string
}
