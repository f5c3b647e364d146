package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/cli"
	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/config"
	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/manager"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/solution"
)

// workspaceOptions are the flags every solution command shares.
type workspaceOptions struct {
	Solution string
	Project  string
	Sources  []string
	Packages string
	CacheTTL time.Duration
}

func (o *workspaceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Solution, "solution", "", "Solution file (default: the only solution in the current directory)")
	cmd.Flags().StringVarP(&o.Project, "project", "p", "", "Project to operate on (default: the first project of the solution)")
	cmd.Flags().StringSliceVarP(&o.Sources, "source", "s", nil, "Package source folder(s) to use")
	cmd.Flags().StringVar(&o.Packages, "packages", "", "Solution packages folder (default: repositoryPath or <solution>/packages)")
	cmd.Flags().DurationVar(&o.CacheTTL, "cache-ttl", repository.DefaultCacheExpiration, "Lifetime of cached source lookups")
}

// workspace is an opened solution with its repositories.
type workspace struct {
	console   *output.Console
	logger    observability.Logger
	solutions *solution.Manager
	config    *config.NuGetConfig
	shared    *repository.SharedRepository
	source    core.Repository
	manager   *manager.VsPackageManager
}

func openWorkspace(console *output.Console, opts *workspaceOptions) (*workspace, error) {
	logger := newLogger(console)

	path := opts.Solution
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = solution.FindSolutionFile(cwd); err != nil {
			return nil, err
		}
	}

	sm := solution.NewManager(logger)
	sol, err := sm.OpenSolution(path)
	if err != nil {
		return nil, fmt.Errorf("open solution: %w", err)
	}

	configPath := viper.GetString(cli.KeyConfigFile)
	if configPath == "" {
		configPath = config.FindConfigFileFrom(sol.SolutionDir)
	}
	cfg, err := config.LoadOrEmpty(configPath)
	if err != nil {
		return nil, err
	}

	packagesDir := opts.Packages
	if packagesDir == "" {
		packagesDir = cfg.ResolvePath(config.KeyRepositoryPath)
	}
	if packagesDir == "" {
		packagesDir = filepath.Join(sol.SolutionDir, "packages")
	}
	shared := repository.NewSharedRepository(packagesDir, "", false, logger)

	w := &workspace{
		console:   console,
		logger:    logger,
		solutions: sm,
		config:    cfg,
		shared:    shared,
	}
	w.source = w.sourceRepository(opts)

	mopts := []manager.Option{manager.WithRecentPackages(repository.NewRecentPackageRepository(repository.DefaultRecentPackages))}
	if global := cfg.ResolvePath(config.KeyGlobalPackagesFolder); global != "" {
		mopts = append(mopts, manager.WithMachineCache(repository.NewLocalRepository(global, true, logger)))
	}
	w.manager = manager.NewVsPackageManager(w.source, shared, mopts...)
	return w, nil
}

// sourceRepository aggregates the local package sources. Remote feeds are
// skipped.
func (w *workspace) sourceRepository(opts *workspaceOptions) core.Repository {
	var folders []string
	if len(opts.Sources) > 0 {
		folders = opts.Sources
	} else {
		for _, s := range w.config.GetEnabledPackageSources() {
			if s.IsRemote() {
				w.console.Detail("Skipping remote source %s (%s)", s.Key, s.Value)
				continue
			}
			folders = append(folders, s.Value)
		}
	}

	repos := make([]core.Repository, 0, len(folders))
	for _, folder := range folders {
		abs, err := filepath.Abs(folder)
		if err != nil {
			abs = folder
		}
		repos = append(repos, repository.NewCachedRepository(repository.NewLocalRepository(abs, true, w.logger), opts.CacheTTL))
	}
	if len(repos) == 1 {
		return repos[0]
	}
	return repository.NewAggregateRepository(repos...)
}

// project resolves name, or the default project when name is empty.
func (w *workspace) project(name string) (project.Project, error) {
	if name == "" {
		p := w.solutions.DefaultProject()
		if p == nil {
			return nil, fmt.Errorf("solution has no projects")
		}
		return p, nil
	}
	return w.solutions.GetProject(name)
}

// projectManager opens the project named name. A solution-level request
// (solutionLevel true) returns nil.
func (w *workspace) projectManager(name string, solutionLevel bool) (*manager.ProjectManager, error) {
	if solutionLevel {
		return nil, nil
	}
	p, err := w.project(name)
	if err != nil {
		return nil, err
	}
	return w.manager.GetProjectManager(p)
}

func newLogger(console *output.Console) observability.Logger {
	var level observability.LogLevel
	switch console.Verbosity() {
	case output.VerbosityQuiet:
		level = observability.ErrorLevel
	case output.VerbosityNormal:
		level = observability.WarnLevel
	case output.VerbosityDetailed:
		level = observability.InfoLevel
	default:
		level = observability.VerboseLevel
	}
	return observability.NewLogger(console.Err(), level)
}
