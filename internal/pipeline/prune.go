package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"rosci/internal/logging"
)

// prune deletes every package that is not a transitive build dependency of
// the targets. Unrelated packages inflate rosdep and build time and can
// introduce spurious dependency-resolution conflicts.
func (p *Pipeline) prune(ctx context.Context) error {
	log := logging.Stage("prune")

	res, err := p.run(ctx, "colcon", "list")
	if err != nil {
		return fmt.Errorf("list packages: %w", err)
	}
	all := parseColconList(res.Output)

	argv := append([]string{"colcon", "list", "--packages-up-to"}, p.cfg.Packages...)
	res, err = p.run(ctx, argv...)
	if err != nil {
		return fmt.Errorf("list dependency closure: %w", err)
	}
	needed := parseColconList(res.Output)

	neededNames := make(map[string]bool, len(needed))
	for _, pkg := range needed {
		neededNames[pkg.Name] = true
	}
	for _, target := range p.cfg.Packages {
		if !neededNames[target] {
			return fmt.Errorf("target package %s not found in workspace", target)
		}
	}

	doomed := prunable(all, needed)
	if len(doomed) == 0 {
		log.Info("nothing to prune", "present", len(all), "needed", len(needed))
		return nil
	}

	abs := make([]string, len(doomed))
	for i, d := range doomed {
		abs[i] = filepath.Join(p.tree.Dir(), d)
	}
	log.Info("pruning packages", "present", len(all), "needed", len(needed), "pruned", len(doomed))
	return p.tree.RemovePaths(ctx, abs)
}
