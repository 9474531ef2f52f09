// Package pipeline sequences the five CI stages: reset, import, inject,
// prune, build-and-verify. Stages are strictly sequential and fail-fast;
// the first fatal error aborts everything after it. The next run's reset
// stage is the only recovery mechanism.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"rosci/internal/config"
	"rosci/internal/execx"
	"rosci/internal/logging"
	"rosci/internal/workspace"
)

// RunConfig carries the invocation inputs: the packages under test, the
// manifest locator, the mixin pair, and the distro list for sourcing.
type RunConfig struct {
	Packages        []string // package identifiers to build and test
	RepoFileLocator string   // manifest path or URL
	MixinName       string   // both-or-neither with MixinRepository
	MixinRepository string
	Distros         []string // ROS distros whose setup scripts the executor sources
}

// Pipeline runs one CI build. Construct with New; run once.
type Pipeline struct {
	cfg  RunConfig
	env  *config.Context
	exec execx.Executor
	tree workspace.Tree

	// HTTPClient overrides the manifest fetch client; nil means default.
	HTTPClient *http.Client
	// cacheDir overrides the colcon cache location removed on reset.
	cacheDir string
}

// New wires a pipeline against the given environment and executor.
func New(cfg RunConfig, env *config.Context, exec execx.Executor) (*Pipeline, error) {
	if len(cfg.Packages) == 0 {
		return nil, fmt.Errorf("package-name is required")
	}
	if cfg.RepoFileLocator == "" {
		return nil, fmt.Errorf("vcs-repo-file-url is required")
	}
	return &Pipeline{
		cfg:  cfg,
		env:  env,
		exec: exec,
		tree: workspace.New(env.WorkspaceRoot),
	}, nil
}

// Tree exposes the workspace tree, mainly for tests.
func (p *Pipeline) Tree() workspace.Tree { return p.tree }

// Run executes all stages in order.
func (p *Pipeline) Run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"reset", p.reset},
		{"import", p.importManifest},
		{"inject", p.injectTarget},
		{"prune", p.prune},
		{"verify", p.buildAndVerify},
	}
	for _, st := range stages {
		log := logging.Stage(st.name)
		log.Info("stage start")
		if err := st.fn(ctx); err != nil {
			log.Error("stage failed", "error", err)
			return fmt.Errorf("%s: %w", st.name, err)
		}
		log.Info("stage done")
	}
	return nil
}

// reset clears cross-run state: the colcon cache and the whole workspace.
func (p *Pipeline) reset(context.Context) error {
	var caches []string
	if cache := p.colconCache(); cache != "" {
		caches = append(caches, cache)
	}
	return p.tree.Reset(caches...)
}

func (p *Pipeline) colconCache() string {
	if p.cacheDir != "" {
		return p.cacheDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".colcon")
}

// run invokes one toolchain command in the workspace directory and returns
// an error for any non-success, start failure included. Callers that
// tolerate failure log instead of propagating.
func (p *Pipeline) run(ctx context.Context, argv ...string) (execx.Result, error) {
	res, err := p.exec.Run(ctx, execx.Command{Argv: argv, Dir: p.tree.Dir()})
	if err != nil {
		return res, err
	}
	if !res.Ok() {
		return res, fmt.Errorf("%s exited %d", argv[0], res.ExitCode)
	}
	return res, nil
}
