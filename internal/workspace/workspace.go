// Package workspace manages the on-disk colcon workspace: the ros2_ws tree
// that holds every imported source package for one build.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// WSDirName is the workspace directory created under the checkout root.
const WSDirName = "ros2_ws"

// Tree addresses the workspace under one checkout root.
type Tree struct {
	Root string
}

func New(root string) Tree {
	return Tree{Root: root}
}

// Dir is the workspace directory, <root>/ros2_ws.
func (t Tree) Dir() string {
	return filepath.Join(t.Root, WSDirName)
}

// Src is the source tree vcstool imports into, <root>/ros2_ws/src.
func (t Tree) Src() string {
	return filepath.Join(t.Dir(), "src")
}

// Reset destroys cross-run state and recreates an empty source tree. Stale
// caches and half-built trees from a previous run can mask build errors, so
// every run starts from a clean slate. Missing directories are a no-op.
func (t Tree) Reset(caches ...string) error {
	for _, cache := range caches {
		if err := os.RemoveAll(cache); err != nil {
			return fmt.Errorf("reset cache %s: %w", cache, err)
		}
	}
	if err := os.RemoveAll(t.Dir()); err != nil {
		return fmt.Errorf("reset workspace: %w", err)
	}
	if err := os.MkdirAll(t.Src(), 0o755); err != nil {
		return fmt.Errorf("create source tree: %w", err)
	}
	return nil
}

// RemoveRepoDir deletes every directory under src whose base name equals
// name, recursively and unconditionally. Zero matches is a silent no-op;
// the aggregate manifest simply did not include the repository.
func (t Tree) RemoveRepoDir(name string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(t.Src(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == t.Src() {
			return nil
		}
		if d.Name() == name {
			matches = append(matches, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan for %s: %w", name, err)
	}
	for _, m := range matches {
		if err := os.RemoveAll(m); err != nil {
			return nil, fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return matches, nil
}

// RemovePaths deletes the given directories. Removals are independent, so
// they run concurrently with a bounded group; any failure aborts the set.
func (t Tree) RemovePaths(ctx context.Context, paths []string) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := os.RemoveAll(p); err != nil {
				return fmt.Errorf("remove %s: %w", p, err)
			}
			return nil
		})
	}
	return g.Wait()
}
