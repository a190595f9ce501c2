package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"modeltool/internal/errors"
	"modeltool/internal/model"
	"modeltool/internal/session"
	"modeltool/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// report is the serialized form of an imported model.
type report struct {
	Path        string       `yaml:"path" json:"path"`
	FileVersion int          `yaml:"file_version" json:"file_version"`
	Meshes      int          `yaml:"meshes" json:"meshes"`
	Vertices    int          `yaml:"vertices" json:"vertices"`
	Indices     int          `yaml:"indices" json:"indices"`
	Bounds      boundsReport `yaml:"bounds" json:"bounds"`
	MeshList    []meshReport `yaml:"mesh_list" json:"mesh_list"`
}

type boundsReport struct {
	Center model.Vec3 `yaml:"center" json:"center"`
	Extent model.Vec3 `yaml:"extent" json:"extent"`
	Radius float32    `yaml:"radius" json:"radius"`
}

type meshReport struct {
	Vertices int         `yaml:"vertices" json:"vertices"`
	Indices  int         `yaml:"indices" json:"indices"`
	Diffuse  model.Color `yaml:"diffuse" json:"diffuse"`
	Specular model.Color `yaml:"specular" json:"specular"`
	Emissive model.Color `yaml:"emissive" json:"emissive"`
	Textures struct {
		Diffuse  string `yaml:"diffuse,omitempty" json:"diffuse,omitempty"`
		Specular string `yaml:"specular,omitempty" json:"specular,omitempty"`
		Normal   string `yaml:"normal,omitempty" json:"normal,omitempty"`
		Glow     string `yaml:"glow,omitempty" json:"glow,omitempty"`
	} `yaml:"textures" json:"textures"`
}

func newReport(d *model.Description) report {
	r := report{
		Path:        d.Path,
		FileVersion: d.FileVersion,
		Meshes:      d.NumMeshes(),
		Vertices:    d.TotalVerts(),
		Indices:     d.TotalInds(),
		Bounds:      boundsReport{Center: d.Bounds.Center, Extent: d.Bounds.Extent, Radius: d.Bounds.Radius},
	}
	for _, m := range d.Meshes() {
		mr := meshReport{
			Vertices: m.VertexCount,
			Indices:  m.IndexCount,
			Diffuse:  m.Diffuse,
			Specular: m.Specular,
			Emissive: m.Emissive,
		}
		mr.Textures.Diffuse = m.DiffuseTexture
		mr.Textures.Specular = m.SpecularTexture
		mr.Textures.Normal = m.NormalTexture
		mr.Textures.Glow = m.GlowTexture
		r.MeshList = append(r.MeshList, mr)
	}
	return r
}

func newInspectCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Import a model and print its mesh structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "yaml", "json":
			default:
				return errors.NewConfigError(fmt.Sprintf("unknown format %q", format), "format", errors.InvalidConfig, nil)
			}

			s, err := a.newSession(session.WithoutWatcher(), session.WithMetricsAddr(""))
			if err != nil {
				return err
			}
			defer s.Close()

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return errors.NewFileError("cannot inspect", path, errors.InvalidPath, err)
			}
			if info.IsDir() {
				return errors.NewFileError("cannot inspect a directory", path, errors.InvalidPath, nil)
			}

			orch := s.Orchestrator()
			if orch.Classifier().Classify(info.Name()) == types.EngineNative {
				a.out.Info("%s is already in the native format (%s)", path, humanize.Bytes(uint64(info.Size())))
				return nil
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if err := orch.Import(ctx, path); err != nil {
				a.printLog(cmd, s)
				return err
			}
			d := orch.Repository().Current()
			if d == nil {
				return errors.New("import produced no model description")
			}
			return writeReport(cmd.OutOrStdout(), format, d)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, yaml or json")
	return cmd
}

func writeReport(w io.Writer, format string, d *model.Description) error {
	r := newReport(d)
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "cannot encode report")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "%-13s%s\n", "File:", d.Path)
	fmt.Fprintf(w, "%-13s%d\n", "Version:", d.FileVersion)
	fmt.Fprintf(w, "%-13s%d\n", "Meshes:", d.NumMeshes())
	fmt.Fprintf(w, "%-13s%d\n", "Vertices:", d.TotalVerts())
	fmt.Fprintf(w, "%-13s%d\n", "Indices:", d.TotalInds())
	fmt.Fprintf(w, "%-13s(%.3f, %.3f, %.3f)\n", "Center:", d.Bounds.Center.X, d.Bounds.Center.Y, d.Bounds.Center.Z)
	fmt.Fprintf(w, "%-13s(%.3f, %.3f, %.3f)\n", "Extent:", d.Bounds.Extent.X, d.Bounds.Extent.Y, d.Bounds.Extent.Z)
	fmt.Fprintf(w, "%-13s%.3f\n", "Radius:", d.Bounds.Radius)
	for i, m := range d.Meshes() {
		fmt.Fprintf(w, "\nMesh %d/%d\n", i+1, d.NumMeshes())
		fmt.Fprintf(w, "  %-13s%d\n", "Vertices:", m.VertexCount)
		fmt.Fprintf(w, "  %-13s%d\n", "Indices:", m.IndexCount)
		fmt.Fprintf(w, "  %-13s%s\n", "Diffuse:", m.Diffuse)
		fmt.Fprintf(w, "  %-13s%s\n", "Specular:", m.Specular)
		fmt.Fprintf(w, "  %-13s%s\n", "Emissive:", m.Emissive)
		fmt.Fprintf(w, "  %-13s%s\n", "Diffuse map:", model.TextureLabel(m.DiffuseTexture))
		fmt.Fprintf(w, "  %-13s%s\n", "Specular map:", model.TextureLabel(m.SpecularTexture))
		fmt.Fprintf(w, "  %-13s%s\n", "Normal map:", model.TextureLabel(m.NormalTexture))
		fmt.Fprintf(w, "  %-13s%s\n", "Glow map:", model.TextureLabel(m.GlowTexture))
	}
	return nil
}
