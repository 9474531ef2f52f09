package pipeline

import (
	"context"
	"fmt"

	"rosci/internal/logging"
)

// buildAndVerify installs system dependencies, optionally registers a
// colcon mixin, builds the target closure, runs the target's tests with
// coverage, and extracts a coverage report. rosdep and coverage extraction
// are tolerated failures; build and test are fatal.
func (p *Pipeline) buildAndVerify(ctx context.Context) error {
	log := logging.Stage("verify")

	// Missing system packages are common for bleeding-edge package sets;
	// the build's own failure is the authoritative signal, so rosdep only warns.
	if _, err := p.run(ctx, "rosdep", "update"); err != nil {
		log.Warn("rosdep update failed, continuing", "error", err)
	}
	if _, err := p.run(ctx, "rosdep", "install", "-r", "--from-paths", "src", "--ignore-src", "-y"); err != nil {
		log.Warn("rosdep install failed, continuing", "error", err)
	}

	if err := p.registerMixin(ctx); err != nil {
		return err
	}

	buildArgv := []string{"colcon", "build", "--symlink-install"}
	if p.cfg.MixinName != "" && p.cfg.MixinRepository != "" {
		buildArgv = append(buildArgv, "--mixin", p.cfg.MixinName)
	}
	buildArgv = append(buildArgv, "--packages-up-to")
	buildArgv = append(buildArgv, p.cfg.Packages...)
	if _, err := p.run(ctx, buildArgv...); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	// Tests cover the targets only, not their dependencies.
	testArgv := append([]string{"colcon", "test", "--pytest-with-coverage", "--packages-select"}, p.cfg.Packages...)
	if _, err := p.run(ctx, testArgv...); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	if _, err := p.run(ctx, "colcon", "test-result", "--verbose"); err != nil {
		return fmt.Errorf("test: %w", err)
	}

	// Coverage extraction is best-effort and never fails the run.
	lcovArgv := append([]string{"colcon", "lcov-result", "--packages-select"}, p.cfg.Packages...)
	if _, err := p.run(ctx, lcovArgv...); err != nil {
		log.Warn("coverage extraction failed, continuing", "error", err)
	}
	return nil
}

// registerMixin registers the configured build mixin source and refreshes
// definitions. Partial configuration means no mixin was requested.
func (p *Pipeline) registerMixin(ctx context.Context) error {
	if p.cfg.MixinName == "" || p.cfg.MixinRepository == "" {
		return nil
	}
	if _, err := p.run(ctx, "colcon", "mixin", "add", "default", p.cfg.MixinRepository); err != nil {
		return fmt.Errorf("register mixin: %w", err)
	}
	if _, err := p.run(ctx, "colcon", "mixin", "update", "default"); err != nil {
		return fmt.Errorf("update mixin: %w", err)
	}
	return nil
}
