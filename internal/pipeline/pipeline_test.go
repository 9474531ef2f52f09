package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rosci/internal/config"
	"rosci/internal/execx"
	"rosci/internal/manifest"
)

const fooManifest = `repositories:
  foo:
    type: git
    url: https://github.com/ros2/foo.git
    version: main
`

func testEnv(root string) *config.Context {
	return &config.Context{
		WorkspaceRoot: root,
		RepoFullName:  "ros2/foo",
		HeadRef:       "pr-123",
		CommitSHA:     "deadbeef",
		TargetURL:     "https://github.com/ros2/foo.git",
	}
}

// newTestPipeline wires a pipeline against a temp root and a Recorder.
func newTestPipeline(t *testing.T, cfg RunConfig, rec *execx.Recorder) *Pipeline {
	t.Helper()
	root := t.TempDir()
	if cfg.RepoFileLocator == "" {
		path := filepath.Join(root, "manifest.repos")
		if err := os.WriteFile(path, []byte(fooManifest), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg.RepoFileLocator = path
	}
	if len(cfg.Packages) == 0 {
		cfg.Packages = []string{"foo"}
	}
	p, err := New(cfg, testEnv(root), rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.cacheDir = filepath.Join(root, ".colcon")
	return p
}

// respondFoo scripts a healthy toolchain for a two-package workspace where
// only foo is in the target closure.
func respondFoo(cmd execx.Command) (execx.Result, error) {
	line := cmd.String()
	switch {
	case strings.HasPrefix(line, "colcon list --packages-up-to"):
		return execx.Result{Output: "foo\tsrc/foo\t(ros.ament_cmake)\n"}, nil
	case line == "colcon list":
		return execx.Result{Output: "foo\tsrc/foo\t(ros.ament_cmake)\nbar\tsrc/bar\t(ros.ament_cmake)\n"}, nil
	}
	return execx.Result{}, nil
}

func TestRun_EndToEnd(t *testing.T) {
	rec := &execx.Recorder{Respond: respondFoo}
	p := newTestPipeline(t, RunConfig{}, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"vcs import --force --recursive --input ci.repos src",
		"vcs import --force --recursive --input target.repos src",
		"colcon list",
		"colcon list --packages-up-to foo",
		"rosdep update",
		"rosdep install -r --from-paths src --ignore-src -y",
		"colcon build --symlink-install --packages-up-to foo",
		"colcon test --pytest-with-coverage --packages-select foo",
		"colcon test-result --verbose",
		"colcon lcov-result --packages-select foo",
	}
	if diff := cmp.Diff(want, rec.Argvs()); diff != "" {
		t.Errorf("invocation sequence mismatch (-want +got):\n%s", diff)
	}

	// The synthetic manifest pins the PR branch, not the upstream default.
	data, err := os.ReadFile(filepath.Join(p.Tree().Dir(), "target.repos"))
	if err != nil {
		t.Fatalf("read target.repos: %v", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		t.Fatalf("parse target.repos: %v", err)
	}
	repo := m.Repositories["foo"]
	if repo.Version != "pr-123" {
		t.Errorf("target version = %q, want pr-123", repo.Version)
	}
	if repo.URL != "https://github.com/ros2/foo.git" || repo.Type != "git" {
		t.Errorf("unexpected target entry: %+v", repo)
	}
}

// The aggregate manifest pins foo to main; injection must first delete the
// imported copy so the re-import lands on the PR ref.
func TestRun_InjectRemovesUpstreamCopy(t *testing.T) {
	var p *Pipeline
	sawUpstream := false
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		line := cmd.String()
		switch {
		case strings.Contains(line, "ci.repos"):
			// Simulate vcstool materializing the aggregate manifest.
			if err := os.MkdirAll(filepath.Join(p.Tree().Src(), "foo"), 0o755); err != nil {
				return execx.Result{}, err
			}
		case strings.Contains(line, "target.repos"):
			_, err := os.Stat(filepath.Join(p.Tree().Src(), "foo"))
			sawUpstream = !os.IsNotExist(err)
		}
		return respondFoo(cmd)
	}
	p = newTestPipeline(t, RunConfig{}, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sawUpstream {
		t.Error("upstream copy of foo still present at target import time")
	}
}

func TestRun_DetachedHeadUsesCommitHash(t *testing.T) {
	rec := &execx.Recorder{Respond: respondFoo}
	p := newTestPipeline(t, RunConfig{}, rec)
	p.env.HeadRef = ""

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(p.Tree().Dir(), "target.repos"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Repositories["foo"].Version; got != "deadbeef" {
		t.Errorf("target version = %q, want commit hash", got)
	}
}

func TestRun_ImportFailureAborts(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if cmd.Argv[0] == "vcs" {
			return execx.Result{ExitCode: 1, Output: "clone failed"}, nil
		}
		return respondFoo(cmd)
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected import failure")
	}
	if !strings.Contains(err.Error(), "import") {
		t.Errorf("error = %v, want import stage", err)
	}
	for _, line := range rec.Argvs() {
		if strings.HasPrefix(line, "colcon") || strings.HasPrefix(line, "rosdep") {
			t.Errorf("stage after import still ran: %s", line)
		}
	}
}

func TestRun_TargetMissingFromWorkspace(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if strings.HasPrefix(cmd.String(), "colcon list") {
			return execx.Result{Output: "bar\tsrc/bar\t(ros.ament_cmake)\n"}, nil
		}
		return execx.Result{}, nil
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not found in workspace") {
		t.Fatalf("err = %v, want target-not-found", err)
	}
}

func TestRun_BuildFailureStopsBeforeTest(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if strings.HasPrefix(cmd.String(), "colcon build") {
			return execx.Result{ExitCode: 2, Output: "compile error"}, nil
		}
		return respondFoo(cmd)
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected build failure")
	}
	for _, line := range rec.Argvs() {
		if strings.HasPrefix(line, "colcon test") {
			t.Errorf("test ran after failed build: %s", line)
		}
	}
}

func TestRun_TestFailureFatal(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if strings.HasPrefix(cmd.String(), "colcon test-result") {
			return execx.Result{ExitCode: 1, Output: "1 test failed"}, nil
		}
		return respondFoo(cmd)
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "test") {
		t.Fatalf("err = %v, want test failure", err)
	}
}

// A failing coverage extraction must never change the overall result.
func TestRun_CoverageFailureTolerated(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if strings.HasPrefix(cmd.String(), "colcon lcov-result") {
			return execx.Result{ExitCode: 1, Output: "no tracefiles found"}, nil
		}
		return respondFoo(cmd)
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("coverage failure must be tolerated, got: %v", err)
	}
}

func TestRun_RosdepFailureTolerated(t *testing.T) {
	rec := &execx.Recorder{}
	rec.Respond = func(cmd execx.Command) (execx.Result, error) {
		if cmd.Argv[0] == "rosdep" {
			return execx.Result{ExitCode: 1, Output: "cannot resolve"}, nil
		}
		return respondFoo(cmd)
	}
	p := newTestPipeline(t, RunConfig{}, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("rosdep failure must be tolerated, got: %v", err)
	}
}

func TestRun_MixinRegistered(t *testing.T) {
	rec := &execx.Recorder{Respond: respondFoo}
	p := newTestPipeline(t, RunConfig{
		MixinName:       "coverage-gcc",
		MixinRepository: "https://raw.githubusercontent.com/colcon/colcon-mixin-repository/master/index.yaml",
	}, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	argvs := rec.Argvs()
	mixinAdd, buildIdx := -1, -1
	for i, line := range argvs {
		if strings.HasPrefix(line, "colcon mixin add") {
			mixinAdd = i
		}
		if strings.HasPrefix(line, "colcon build") {
			buildIdx = i
			if !strings.Contains(line, "--mixin coverage-gcc") {
				t.Errorf("build missing mixin flag: %s", line)
			}
		}
	}
	if mixinAdd == -1 || buildIdx == -1 || mixinAdd > buildIdx {
		t.Errorf("mixin registration must precede build, argvs: %v", argvs)
	}
}

// Partial mixin configuration is treated as "no mixin requested".
func TestRun_PartialMixinSkipped(t *testing.T) {
	for name, cfg := range map[string]RunConfig{
		"name-only": {MixinName: "coverage-gcc"},
		"repo-only": {MixinRepository: "https://example.com/index.yaml"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := &execx.Recorder{Respond: respondFoo}
			p := newTestPipeline(t, cfg, rec)

			if err := p.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			for _, line := range rec.Argvs() {
				if strings.HasPrefix(line, "colcon mixin") {
					t.Errorf("mixin step ran with partial config: %s", line)
				}
				if strings.HasPrefix(line, "colcon build") && strings.Contains(line, "--mixin") {
					t.Errorf("build used mixin with partial config: %s", line)
				}
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	env := testEnv(t.TempDir())
	if _, err := New(RunConfig{RepoFileLocator: "x"}, env, &execx.Recorder{}); err == nil {
		t.Error("expected error for missing packages")
	}
	if _, err := New(RunConfig{Packages: []string{"foo"}}, env, &execx.Recorder{}); err == nil {
		t.Error("expected error for missing repo file locator")
	}
}
