package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rosci/internal/config"
	"rosci/internal/execx"
	"rosci/internal/logging"
	"rosci/internal/pipeline"
)

var runFlags struct {
	packageName string
	repoFile    string
	mixinName   string
	mixinRepo   string
	rosDistros  string
	logLevel    string
	logFormat   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full CI pipeline for the package under test",
	Long: `Run the five-stage pipeline: reset the workspace, import the repository
manifest, inject the package under test at its PR ref, prune packages
outside the target's dependency closure, then rosdep/build/test/coverage.

Flags fall back to the GitHub-Action style INPUT_* environment variables
(e.g. INPUT_PACKAGE-NAME), so the same invocation works locally and in CI.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.packageName, "package-name", "", "Whitespace-separated packages to build and test (required)")
	f.StringVar(&runFlags.repoFile, "repo-file", "", "Path or URL of the .repos manifest (required)")
	f.StringVar(&runFlags.mixinName, "mixin-name", "", "colcon mixin to build with (requires --mixin-repository)")
	f.StringVar(&runFlags.mixinRepo, "mixin-repository", "", "Mixin index URL to register (requires --mixin-name)")
	f.StringVar(&runFlags.rosDistros, "ros-distro", "", "Whitespace-separated ROS distros whose setup scripts are sourced (Linux only)")
	f.StringVar(&runFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&runFlags.logFormat, "log-format", "text", "Log format: text or json")
}

// inputViper binds each flag name to its INPUT_* environment variable, the
// way a GitHub Action receives its inputs.
func inputViper() *viper.Viper {
	v := viper.New()
	for _, name := range []string{"package-name", "repo-file", "vcs-repo-file-url", "mixin-name", "mixin-repository", "source-ros-binary-installation"} {
		_ = v.BindEnv(name, "INPUT_"+strings.ToUpper(name))
	}
	return v
}

// flagOrInput prefers the explicit flag value over the INPUT_* fallback(s).
func flagOrInput(v *viper.Viper, flagValue string, inputs ...string) string {
	if flagValue != "" {
		return flagValue
	}
	for _, in := range inputs {
		if s := v.GetString(in); s != "" {
			return s
		}
	}
	return ""
}

func runRun(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(runFlags.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, runFlags.logFormat)
	log := logging.New("rosci")

	v := inputViper()
	cfg := pipeline.RunConfig{
		Packages:        strings.Fields(flagOrInput(v, runFlags.packageName, "package-name")),
		RepoFileLocator: flagOrInput(v, runFlags.repoFile, "repo-file", "vcs-repo-file-url"),
		MixinName:       flagOrInput(v, runFlags.mixinName, "mixin-name"),
		MixinRepository: flagOrInput(v, runFlags.mixinRepo, "mixin-repository"),
		Distros:         strings.Fields(flagOrInput(v, runFlags.rosDistros, "source-ros-binary-installation")),
	}

	env, err := config.Load()
	if err != nil {
		return err
	}

	setups, err := execx.SourceSetups(cfg.Distros)
	if err != nil {
		return err
	}
	sh := &execx.Shell{Setups: setups, Logger: logging.New("exec")}

	p, err := pipeline.New(cfg, env, sh)
	if err != nil {
		return err
	}

	log.Info("starting CI run",
		"packages", strings.Join(cfg.Packages, " "),
		"repo", env.RepoFullName,
		"ref", env.TargetRef())
	if err := p.Run(cmd.Context()); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	log.Info("CI run succeeded")
	return nil
}
