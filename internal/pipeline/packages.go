package pipeline

import (
	"sort"
	"strings"
)

// Package is one entry of `colcon list`: a package declared by a manifest
// file inside a directory. The package, not the directory, is the unit of
// comparison; a directory may contain zero or several packages.
type Package struct {
	Name string
	Path string // relative to the workspace directory
}

// parseColconList parses `colcon list` output: one package per line,
// name / path / build type separated by whitespace.
func parseColconList(output string) []Package {
	var pkgs []Package
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pkgs = append(pkgs, Package{Name: fields[0], Path: fields[1]})
	}
	return pkgs
}

// prunable returns the paths of packages present but not needed: a
// structural set difference over package names, never a textual diff, so
// listing order cannot under- or over-prune. A path is excluded when a
// needed package still lives at or beneath it.
func prunable(all, needed []Package) []string {
	keep := make(map[string]bool, len(needed))
	neededPaths := make([]string, 0, len(needed))
	for _, pkg := range needed {
		keep[pkg.Name] = true
		neededPaths = append(neededPaths, pkg.Path)
	}

	pathSet := make(map[string]bool)
	for _, pkg := range all {
		if keep[pkg.Name] {
			continue
		}
		if coversNeeded(pkg.Path, neededPaths) {
			continue
		}
		pathSet[pkg.Path] = true
	}

	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// coversNeeded reports whether any needed package path equals dir or lies
// beneath it.
func coversNeeded(dir string, neededPaths []string) bool {
	for _, np := range neededPaths {
		if np == dir || strings.HasPrefix(np, dir+"/") {
			return true
		}
	}
	return false
}
