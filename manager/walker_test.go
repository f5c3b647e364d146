package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/repository"
)

func opStrings(ops []core.PackageOperation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func TestWalker_InstallPlan(t *testing.T) {
	tests := []struct {
		name       string
		installed  []*core.Package
		sideBySide bool
		ignoreDeps bool
		want       []string
	}{
		{
			name: "dependencies first",
			want: []string{"Install C 1.0.0", "Install B 1.0.0", "Install A 1.0.0"},
		},
		{
			name:      "satisfied dependency skipped",
			installed: []*core.Package{newPackage("B", "1.5.0")},
			want:      []string{"Install A 1.0.0"},
		},
		{
			name:      "conflicting version replaced",
			installed: []*core.Package{newPackage("C", "0.5.0")},
			want:      []string{"Uninstall C 0.5.0", "Install C 1.0.0", "Install B 1.0.0", "Install A 1.0.0"},
		},
		{
			name:       "side by side keeps other versions",
			installed:  []*core.Package{newPackage("C", "0.5.0")},
			sideBySide: true,
			want:       []string{"Install C 1.0.0", "Install B 1.0.0", "Install A 1.0.0"},
		},
		{
			name:       "ignore dependencies",
			ignoreDeps: true,
			want:       []string{"Install A 1.0.0"},
		},
		{
			name:      "already installed",
			installed: []*core.Package{newPackage("A", "1.0.0"), newPackage("B", "1.0.0"), newPackage("C", "1.0.0")},
			want:      []string{},
		},
	}

	a := newPackage("A", "1.0.0", dependency("B", "1.0"))
	source := repository.NewMemoryRepository("feed",
		a,
		newPackage("B", "1.0.0", dependency("C", "1.0")),
		newPackage("C", "1.0.0"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &walker{
				installed:          repository.NewMemoryRepository("installed", tt.installed...),
				source:             source,
				ignoreDependencies: tt.ignoreDeps,
				sideBySide:         tt.sideBySide,
				logger:             observability.NewNullLogger(),
			}
			ops, err := w.installPlan(context.Background(), a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, opStrings(ops))
		})
	}
}

func TestWalker_InstallPlan_Errors(t *testing.T) {
	ctx := context.Background()
	cyclic := newPackage("A", "1.0.0", dependency("B", "1.0"))
	source := repository.NewMemoryRepository("feed",
		cyclic,
		newPackage("B", "1.0.0", dependency("A", "1.0")),
		newPackage("Lonely", "1.0.0", dependency("Nowhere", "1.0")),
	)
	w := &walker{
		installed: repository.NewMemoryRepository("installed"),
		source:    source,
		logger:    observability.NewNullLogger(),
	}

	_, err := w.installPlan(ctx, cyclic)
	assert.ErrorIs(t, err, core.ErrInvalidOperation)
	assert.ErrorContains(t, err, "circular dependency")

	lonely, err := source.FindPackage(ctx, "Lonely", newPackage("Lonely", "1.0.0").Version())
	require.NoError(t, err)
	_, err = w.installPlan(ctx, lonely)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
	assert.ErrorContains(t, err, "Nowhere")
}

func TestWalker_UninstallPlan(t *testing.T) {
	a := newPackage("A", "1.0.0", dependency("B", "1.0"))
	b := newPackage("B", "1.0.0", dependency("C", "1.0"))
	c := newPackage("C", "1.0.0")
	other := newPackage("Other", "1.0.0", dependency("C", "1.0"))

	tests := []struct {
		name      string
		installed []*core.Package
		target    *core.Package
		force     bool
		removeDep bool
		want      []string
		wantErr   bool
	}{
		{name: "single", installed: []*core.Package{a, b, c}, target: a, want: []string{"Uninstall A 1.0.0"}},
		{name: "dependents block", installed: []*core.Package{a, b, c}, target: b, wantErr: true},
		{name: "force", installed: []*core.Package{a, b, c}, target: b, force: true, want: []string{"Uninstall B 1.0.0"}},
		{
			name:      "remove dependencies",
			installed: []*core.Package{a, b, c},
			target:    a,
			removeDep: true,
			want:      []string{"Uninstall A 1.0.0", "Uninstall B 1.0.0", "Uninstall C 1.0.0"},
		},
		{
			name:      "shared dependency kept",
			installed: []*core.Package{a, b, c, other},
			target:    a,
			removeDep: true,
			want:      []string{"Uninstall A 1.0.0", "Uninstall B 1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &walker{
				installed: repository.NewMemoryRepository("installed", tt.installed...),
				logger:    observability.NewNullLogger(),
			}
			ops, err := w.uninstallPlan(context.Background(), tt.target, tt.force, tt.removeDep)
			if tt.wantErr {
				var dependents *core.DependentsError
				require.ErrorAs(t, err, &dependents)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, opStrings(ops))
		})
	}
}

func TestWalker_UpdatePlan(t *testing.T) {
	old := newPackage("A", "1.0.0")
	target := newPackage("A", "2.0.0", dependency("B", "1.0"))
	w := &walker{
		installed: repository.NewMemoryRepository("installed", old),
		source:    repository.NewMemoryRepository("feed", target, newPackage("B", "1.0.0")),
		logger:    observability.NewNullLogger(),
	}

	ops, err := w.updatePlan(context.Background(), old, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"Uninstall A 1.0.0", "Install B 1.0.0", "Install A 2.0.0"}, opStrings(ops))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "PackageInstalling", PackageInstalling.String())
	assert.Equal(t, "ReferenceRemoved", ReferenceRemoved.String())
	assert.Equal(t, "Unknown", EventType(42).String())
}
