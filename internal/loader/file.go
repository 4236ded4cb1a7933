package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/meshdash/pkg/mesh"
	"github.com/philipparndt/meshdash/pkg/obj"
	"github.com/philipparndt/meshdash/pkg/openscad"
	"github.com/philipparndt/meshdash/pkg/stl"
)

// FileLoader reads STL, OBJ and OpenSCAD files from disk
type FileLoader struct {
	// OpenSCAD is optional; without it .scad files are rejected
	OpenSCAD func(workDir string) *openscad.Renderer
}

func (FileLoader) Name() string { return "file" }

func (f FileLoader) Load(ctx context.Context, path string) (*Source, error) {
	if path == "" {
		return nil, ErrNoSource
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".stl":
		m, err := loadSTL(path)
		if err != nil {
			return nil, err
		}
		return &Source{Mesh: m, Files: []string{path}}, nil

	case ".obj":
		model, err := obj.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OBJ file: %w", err)
		}
		m, err := mesh.FromOBJ(model)
		if err != nil {
			return nil, err
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return &Source{Mesh: m, Files: []string{path}}, nil

	case ".scad":
		return f.loadSCAD(ctx, path)

	default:
		return nil, fmt.Errorf("unsupported file type: %q (expected .stl, .obj or .scad)", ext)
	}
}

func loadSTL(path string) (*mesh.Mesh, error) {
	model, err := stl.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse STL file: %w", err)
	}
	if model.Name == "" {
		model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return mesh.FromSTL(model)
}

func (f FileLoader) loadSCAD(ctx context.Context, path string) (*Source, error) {
	if f.OpenSCAD == nil {
		return nil, fmt.Errorf("OpenSCAD rendering is disabled")
	}
	renderer := f.OpenSCAD(filepath.Dir(path))

	tmp, err := os.CreateTemp("", "meshdash_*.stl")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary STL: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := renderer.RenderToSTL(ctx, path, tmp.Name()); err != nil {
		return nil, fmt.Errorf("failed to render OpenSCAD file: %w", err)
	}
	m, err := loadSTL(tmp.Name())
	if err != nil {
		return nil, err
	}
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	files, err := renderer.ResolveDependencies(path)
	if err != nil {
		files = []string{path}
	}
	return &Source{Mesh: m, Files: files}, nil
}
