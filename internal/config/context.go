// Package config loads the CI environment context: workspace root,
// source-control identity, and the ref under test. Loaded once at process
// start and passed explicitly to every stage so nothing reads globals later.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Context is the immutable environment snapshot the pipeline runs against.
type Context struct {
	WorkspaceRoot string // checkout root; ros2_ws lives beneath it
	RepoFullName  string // owner/name of the repository under test
	HeadRef       string // PR branch name, empty on tag/detached builds
	CommitSHA     string // commit hash, the ref fallback
	TargetURL     string // clone URL for the target; fork URL on fork PRs
}

// pullRequestEvent is the slice of the GitHub event payload we care about.
type pullRequestEvent struct {
	PullRequest struct {
		Head struct {
			Repo struct {
				Fork     bool   `json:"fork"`
				CloneURL string `json:"clone_url"`
				FullName string `json:"full_name"`
			} `json:"repo"`
		} `json:"head"`
	} `json:"pull_request"`
}

// Load reads the context from the process environment.
func Load() (*Context, error) {
	return load(newViper(), os.ReadFile)
}

func newViper() *viper.Viper {
	v := viper.New()
	_ = v.BindEnv("workspace", "GITHUB_WORKSPACE")
	_ = v.BindEnv("repository", "GITHUB_REPOSITORY")
	_ = v.BindEnv("head-ref", "GITHUB_HEAD_REF")
	_ = v.BindEnv("sha", "GITHUB_SHA")
	_ = v.BindEnv("event-path", "GITHUB_EVENT_PATH")
	return v
}

func load(v *viper.Viper, readFile func(string) ([]byte, error)) (*Context, error) {
	ctx := &Context{
		WorkspaceRoot: v.GetString("workspace"),
		RepoFullName:  v.GetString("repository"),
		HeadRef:       v.GetString("head-ref"),
		CommitSHA:     v.GetString("sha"),
	}

	if ctx.WorkspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
		ctx.WorkspaceRoot = wd
	}
	if ctx.RepoFullName == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	if ctx.HeadRef == "" && ctx.CommitSHA == "" {
		return nil, fmt.Errorf("neither GITHUB_HEAD_REF nor GITHUB_SHA is set")
	}

	ctx.TargetURL = fmt.Sprintf("https://github.com/%s.git", ctx.RepoFullName)
	if eventPath := v.GetString("event-path"); eventPath != "" {
		if url, ok := forkCloneURL(eventPath, readFile); ok {
			ctx.TargetURL = url
		}
	}
	return ctx, nil
}

// forkCloneURL returns the head repository's clone URL when the pull request
// originates from a fork. The base repository URL would hold the wrong code
// in that case: the PR branch only exists on the fork.
func forkCloneURL(eventPath string, readFile func(string) ([]byte, error)) (string, bool) {
	data, err := readFile(eventPath)
	if err != nil {
		return "", false
	}
	var ev pullRequestEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", false
	}
	head := ev.PullRequest.Head.Repo
	if !head.Fork || head.CloneURL == "" {
		return "", false
	}
	return head.CloneURL, true
}

// TargetRef is the ref the pipeline checks out: the PR branch when one
// exists, otherwise the raw commit hash. Both are valid vcstool versions.
func (c *Context) TargetRef() string {
	if c.HeadRef != "" {
		return c.HeadRef
	}
	return c.CommitSHA
}

// RepoName is the repository short name, the directory vcstool clones into.
func (c *Context) RepoName() string {
	if i := strings.LastIndex(c.RepoFullName, "/"); i >= 0 {
		return c.RepoFullName[i+1:]
	}
	return c.RepoFullName
}
