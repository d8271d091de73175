package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gh-nvat/release-discussions/src/internal/runner"
	"github.com/gh-nvat/release-discussions/src/pkg/config"
	"github.com/gh-nvat/release-discussions/src/pkg/cycle"
	"github.com/gh-nvat/release-discussions/src/pkg/github"
	"github.com/sethvargo/go-githubactions"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Flag names double as Action input names (INPUT_<NAME>)
const (
	FLAG_REPO           = "repo"
	FLAG_CATEGORY       = "category"
	FLAG_CYCLE          = "cycle"
	FLAG_CONFIG         = "config"
	FLAG_TEMPLATES_PATH = "templates-path"
	FLAG_API_URL        = "api-url"
	FLAG_EVENT_NAME     = "event-name"
	FLAG_EVENT_PATH     = "event-path"
	FLAG_DRY_RUN        = "dry-run"
	FLAG_ENABLE_TRACING = "enable-tracing"
	FLAG_OUTPUT_DIR     = "output-dir"
	FLAG_LOG_LEVEL      = "log-level"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		githubactions.New().Errorf("%s", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release-discussions",
		Short: "Collects releases into one GitHub Discussion per release cycle",
		Long: `release-discussions runs on a GitHub release event. It files the release as a
comment in the discussion of its weekly or monthly cycle and keeps the table of
contents at the top of that discussion in sync with the release comments.

Runs are not safe to overlap. Two releases handled at the same time can create two
discussions for one cycle or overwrite each other's table of contents. Serialize the
runs per repository, for example with a workflow concurrency group:

  concurrency:
    group: release-discussions-${{ github.repository }}
    cancel-in-progress: false`,
		Version:       fmt.Sprintf("%s (built: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			if err := configureLogging(v.GetString(FLAG_LOG_LEVEL)); err != nil {
				return err
			}
			opts, err := resolveOptions(v)
			if err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().String(FLAG_REPO, "", "Repository holding the discussions, owner/name (default $GITHUB_REPOSITORY)")
	cmd.Flags().String(FLAG_CATEGORY, "", "Slug of the discussion category (required)")
	cmd.Flags().String(FLAG_CYCLE, string(cycle.WEEK), "Release cycle: week or month")
	cmd.Flags().String(FLAG_CONFIG, "", "Path to an optional YAML configuration file")
	cmd.Flags().String(FLAG_TEMPLATES_PATH, "", "Directory with toc.md.tmpl, comment.md.tmpl or discussion.md.tmpl overrides")
	cmd.Flags().String(FLAG_API_URL, "", "GitHub GraphQL endpoint (default $GITHUB_GRAPHQL_URL or api.github.com)")
	cmd.Flags().String(FLAG_EVENT_NAME, "", "Name of the triggering event (default $GITHUB_EVENT_NAME)")
	cmd.Flags().String(FLAG_EVENT_PATH, "", "Path to the event payload (default $GITHUB_EVENT_PATH)")
	cmd.Flags().Bool(FLAG_DRY_RUN, false, "Read everything but only log the changes that would be made")
	cmd.Flags().Bool(FLAG_ENABLE_TRACING, false, "Record a span per step and write a performance report")
	cmd.Flags().String(FLAG_OUTPUT_DIR, "./output", "Directory for the performance report")
	cmd.Flags().String(FLAG_LOG_LEVEL, "info", "Log level: debug, info, warn or error")

	return cmd
}

// newViper layers flags over Action inputs over the optional config file. Action
// inputs are read both as INPUT_TEMPLATES-PATH, the way the runner exports them,
// and as INPUT_TEMPLATES_PATH for shells that cannot set the former.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		upper := strings.ToUpper(f.Name)
		names := []string{f.Name, "INPUT_" + upper}
		if underscored := strings.ReplaceAll(upper, "-", "_"); underscored != upper {
			names = append(names, "INPUT_"+underscored)
		}
		if err := v.BindEnv(names...); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("failed to bind inputs: %w", bindErr)
	}

	if path := v.GetString(FLAG_CONFIG); path != "" {
		if err := applyConfigFile(v, path); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// applyConfigFile registers the file values as defaults so flags and inputs still win
func applyConfigFile(v *viper.Viper, path string) error {
	loader := config.NewLoader()
	fc, err := loader.Load(path)
	if err != nil {
		return err
	}
	if err := loader.Validate(fc); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	for key, value := range map[string]string{
		FLAG_REPO:           fc.Repo,
		FLAG_CATEGORY:       fc.Category,
		FLAG_CYCLE:          fc.Cycle,
		FLAG_TEMPLATES_PATH: fc.TemplatesPath,
		FLAG_API_URL:        fc.APIURL,
		FLAG_OUTPUT_DIR:     fc.Tracing.OutputDir,
	} {
		if value != "" {
			v.SetDefault(key, value)
		}
	}
	if fc.Tracing.Enabled {
		v.SetDefault(FLAG_ENABLE_TRACING, true)
	}
	log.WithField("path", path).Debug("Loaded configuration file")
	return nil
}

// resolveOptions builds the runner options, filling what is still empty from the
// variables GitHub sets for every workflow step
func resolveOptions(v *viper.Viper) (*runner.Options, error) {
	opts := &runner.Options{
		Repo:          v.GetString(FLAG_REPO),
		Category:      v.GetString(FLAG_CATEGORY),
		EventName:     v.GetString(FLAG_EVENT_NAME),
		EventPath:     v.GetString(FLAG_EVENT_PATH),
		APIURL:        v.GetString(FLAG_API_URL),
		TemplatesPath: v.GetString(FLAG_TEMPLATES_PATH),
		DryRun:        v.GetBool(FLAG_DRY_RUN),
		EnableTracing: v.GetBool(FLAG_ENABLE_TRACING),
		OutputDir:     v.GetString(FLAG_OUTPUT_DIR),
	}

	raw := v.GetString(FLAG_CYCLE)
	g, ok := cycle.ParseGranularity(raw)
	if !ok {
		log.WithField("cycle", raw).Warn("Unknown cycle, falling back to week")
	}
	opts.Cycle = g

	if opts.Repo == "" {
		opts.Repo = os.Getenv("GITHUB_REPOSITORY")
	}
	if opts.EventName == "" {
		opts.EventName = os.Getenv("GITHUB_EVENT_NAME")
	}
	if opts.EventPath == "" {
		opts.EventPath = os.Getenv("GITHUB_EVENT_PATH")
	}
	if opts.APIURL == "" {
		opts.APIURL = os.Getenv("GITHUB_GRAPHQL_URL")
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	token, err := github.Token()
	if err != nil {
		return nil, err
	}
	opts.Token = token
	return opts, nil
}

func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(lvl)

	// the runner timestamps every line already
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
