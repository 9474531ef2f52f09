package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rosci/internal/logging"
	"rosci/internal/manifest"
)

// Manifest files are written next to src, not inside it, so colcon never
// mistakes them for package sources.
const (
	aggregateReposFile = "ci.repos"
	targetReposFile    = "target.repos"
)

// importManifest resolves the repo-file locator, fetches the manifest, and
// materializes every listed repository under src. Any fetch or clone
// failure is fatal; there is no partial-success mode.
func (p *Pipeline) importManifest(ctx context.Context) error {
	log := logging.Stage("import")

	url := manifest.ResolveURL(p.cfg.RepoFileLocator)
	data, err := manifest.Fetch(ctx, url, p.HTTPClient)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return err
	}
	log.Info("manifest fetched", "url", url, "repositories", len(m.Repositories))

	path := filepath.Join(p.tree.Dir(), aggregateReposFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", aggregateReposFile, err)
	}
	return p.vcsImport(ctx, aggregateReposFile)
}

// injectTarget replaces any imported copy of the repository under test with
// a fresh checkout at the ref under test. The aggregate manifest may pin
// the same repository to its default branch; with an import tool that
// treats repository name as identity, delete-then-reimport is the only
// reliable override.
func (p *Pipeline) injectTarget(ctx context.Context) error {
	log := logging.Stage("inject")

	name := p.env.RepoName()
	removed, err := p.tree.RemoveRepoDir(name)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		log.Info("removed upstream copy", "repo", name, "dirs", removed)
	}

	ref := p.env.TargetRef()
	m := manifest.ForTarget(name, p.env.TargetURL, ref)
	if err := m.WriteFile(filepath.Join(p.tree.Dir(), targetReposFile)); err != nil {
		return err
	}
	log.Info("importing target", "repo", name, "url", p.env.TargetURL, "ref", ref)
	return p.vcsImport(ctx, targetReposFile)
}

func (p *Pipeline) vcsImport(ctx context.Context, reposFile string) error {
	_, err := p.run(ctx, "vcs", "import", "--force", "--recursive", "--input", reposFile, "src")
	if err != nil {
		return fmt.Errorf("vcs import %s: %w", reposFile, err)
	}
	return nil
}
