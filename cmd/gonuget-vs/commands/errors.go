package commands

import (
	"errors"
	"fmt"

	"github.com/willibrandon/gonuget-vs/core"
)

// errPreinstallFailed is returned after preinstall failures were already
// reported on the console.
var errPreinstallFailed = errors.New("one or more packages failed to preinstall")

// ExitCode maps an error to the process exit code: 2 for usage-level
// problems (unknown package or project, ambiguous match), 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		unknownPackage *core.UnknownPackageError
		unknownProject *core.UnknownProjectError
		ambiguous      *core.AmbiguousMatchError
	)
	switch {
	case errors.As(err, &unknownPackage), errors.As(err, &unknownProject), errors.As(err, &ambiguous):
		return 2
	default:
		return 1
	}
}

// Describe returns the message printed for err.
func Describe(err error) string {
	var dependents *core.DependentsError
	if errors.As(err, &dependents) {
		return fmt.Sprintf("%v (use --force to remove it anyway)", err)
	}
	return err.Error()
}
