package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/solution"
)

type projectsOptions struct {
	workspaceOptions
	ListPackages bool
	Watch        bool
	Timeout      time.Duration
}

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(console *output.Console) *cobra.Command {
	opts := &projectsOptions{}

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects of a solution",
		Long: `Lists the projects of a solution by the names the other commands accept.
Projects sharing a name are shown by their solution folder path.

Examples:
  gonuget-vs projects
  gonuget-vs projects --list-packages
  gonuget-vs projects --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(cmd.Context(), console, opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.ListPackages, "list-packages", false, "Also list the packages each project references")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Keep running and report project changes to the solution file")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Time allowed for reading the packages of one project")
	return cmd
}

func runProjects(ctx context.Context, console *output.Console, opts *projectsOptions) error {
	w, err := openWorkspace(console, &opts.workspaceOptions)
	if err != nil {
		return err
	}

	if err := listProjects(ctx, w, opts); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watchProjects(ctx, w)
}

func listProjects(ctx context.Context, w *workspace, opts *projectsOptions) error {
	cache := w.solutions.Cache()
	defaultName := w.solutions.DefaultProjectName()

	for _, name := range cache.Names() {
		display := solution.DisplayName(cache, name)
		marker := " "
		if display == defaultName {
			marker = "*"
		}
		p, _ := cache.TryGetProject(name.UniqueName)
		kind := project.KindUnknown
		if p != nil {
			kind = p.Kind()
		}
		w.console.Printf("%s %-40s %s\n", marker, display, kind)

		if opts.ListPackages && p != nil {
			if err := listPackages(ctx, w, p, opts.Timeout); err != nil {
				w.console.Warning("%s: %v", display, err)
			}
		}
	}
	return nil
}

// listPackages reads the project's packages.config on a background query
// bounded by timeout.
func listPackages(ctx context.Context, w *workspace, p project.Project, timeout time.Duration) error {
	ps, err := w.manager.GetProjectManager(p)
	if err != nil {
		return err
	}
	local := ps.LocalRepository()
	repo := repository.NewAwareProjectRepository(p.Name(), repository.QueryRepository(local))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	packages, err := repo.GetPackages(ctx)
	if err != nil {
		return err
	}
	for _, pkg := range packages {
		w.console.Printf("    %s %s\n", pkg.ID(), pkg.Version())
	}
	return nil
}

func watchProjects(ctx context.Context, w *workspace) error {
	sol := w.solutions.Solution()
	watcher, err := solution.NewWatcher(w.solutions, solution.DefaultWatcherConfig(sol.FilePath), w.logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	changes, err := watcher.Start()
	if err != nil {
		return err
	}
	w.console.Info("Watching %s for changes (Ctrl+C to stop)", sol.FilePath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case diff := <-changes:
			w.console.Println(formatDiff(diff))
		}
	}
}

func formatDiff(diff solution.ProjectDiff) string {
	var b strings.Builder
	for _, p := range diff.Added {
		fmt.Fprintf(&b, "+ %s\n", p.UniqueName())
	}
	for _, p := range diff.Removed {
		fmt.Fprintf(&b, "- %s\n", p.UniqueName())
	}
	for _, r := range diff.Renamed {
		fmt.Fprintf(&b, "~ %s -> %s\n", r.Old.UniqueName(), r.New.UniqueName())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
