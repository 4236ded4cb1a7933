// Package openscad renders .scad sources to STL through the openscad binary.
package openscad

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNotInstalled is returned when the openscad binary cannot be found
var ErrNotInstalled = errors.New("openscad not found in PATH, install it from https://openscad.org/")

var (
	useRegex     = regexp.MustCompile(`^\s*use\s*<([^>]+)>`)
	includeRegex = regexp.MustCompile(`^\s*include\s*<([^>]+)>`)
)

// Renderer handles OpenSCAD file rendering to STL
type Renderer struct {
	workDir string
	binary  string
}

// NewRenderer creates a new OpenSCAD renderer
func NewRenderer(workDir string) *Renderer {
	return &Renderer{
		workDir: workDir,
		binary:  "openscad",
	}
}

// WithBinary overrides the openscad executable
func (r *Renderer) WithBinary(path string) *Renderer {
	r.binary = path
	return r
}

func (r *Renderer) abs(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(r.workDir, file)
}

// RenderToSTL renders an OpenSCAD file to STL format
func (r *Renderer) RenderToSTL(ctx context.Context, scadFile, outputFile string) error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return ErrNotInstalled
	}

	cmd := exec.CommandContext(ctx, r.binary, "-o", outputFile, r.abs(scadFile))
	cmd.Dir = r.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var msg strings.Builder
		fmt.Fprintf(&msg, "failed to render %s: %v", scadFile, err)
		if stderr.Len() > 0 {
			msg.WriteString("; stderr: ")
			msg.WriteString(strings.TrimSpace(stderr.String()))
		}
		if stdout.Len() > 0 {
			msg.WriteString("; stdout: ")
			msg.WriteString(strings.TrimSpace(stdout.String()))
		}
		return errors.New(msg.String())
	}

	return nil
}

// ResolveDependencies finds all dependencies (use/include statements) in an OpenSCAD file
// Returns a list of absolute paths, starting with the file itself
func (r *Renderer) ResolveDependencies(scadFile string) ([]string, error) {
	visited := make(map[string]bool)
	var deps []string

	if err := r.resolveDependenciesRecursive(r.abs(scadFile), visited, &deps); err != nil {
		return nil, err
	}

	return deps, nil
}

func (r *Renderer) resolveDependenciesRecursive(scadFile string, visited map[string]bool, deps *[]string) error {
	// Avoid circular dependencies
	if visited[scadFile] {
		return nil
	}
	visited[scadFile] = true
	*deps = append(*deps, scadFile)

	fileDeps, err := r.parseDependencies(scadFile)
	if err != nil {
		return err
	}

	for _, dep := range fileDeps {
		if err := r.resolveDependenciesRecursive(dep, visited, deps); err != nil {
			return err
		}
	}

	return nil
}

// parseDependencies parses a single OpenSCAD file to find use/include statements
func (r *Renderer) parseDependencies(scadFile string) ([]string, error) {
	file, err := os.Open(scadFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", scadFile, err)
	}
	defer file.Close()

	var deps []string
	scanner := bufio.NewScanner(file)
	scadDir := filepath.Dir(scadFile)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}

		for _, re := range []*regexp.Regexp{useRegex, includeRegex} {
			if matches := re.FindStringSubmatch(line); len(matches) > 1 {
				deps = append(deps, r.resolveDepPath(matches[1], scadDir))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", scadFile, err)
	}

	return deps, nil
}

// resolveDepPath resolves a dependency path relative to the current file's directory
func (r *Renderer) resolveDepPath(depPath, currentDir string) string {
	if strings.HasPrefix(depPath, "./") || strings.HasPrefix(depPath, "../") {
		return filepath.Clean(filepath.Join(currentDir, depPath))
	}

	absPath := filepath.Join(currentDir, depPath)
	if _, err := os.Stat(absPath); err == nil {
		return filepath.Clean(absPath)
	}

	return filepath.Clean(filepath.Join(r.workDir, depPath))
}
