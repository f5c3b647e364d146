package core

// PackageAction is the kind of a planned package operation.
type PackageAction int

const (
	// ActionInstall installs the package.
	ActionInstall PackageAction = iota
	// ActionUninstall uninstalls the package.
	ActionUninstall
)

// String returns "Install" or "Uninstall".
func (a PackageAction) String() string {
	switch a {
	case ActionInstall:
		return "Install"
	case ActionUninstall:
		return "Uninstall"
	default:
		return "Unknown"
	}
}

// PackageOperation is one step of a dependency-resolved execution plan.
// Plans are executed in slice order.
type PackageOperation struct {
	Package *Package
	Action  PackageAction
}

// String returns "Install A 1.0".
func (o PackageOperation) String() string {
	return o.Action.String() + " " + o.Package.String()
}

// InstallOperation returns an install step for pkg.
func InstallOperation(pkg *Package) PackageOperation {
	return PackageOperation{Package: pkg, Action: ActionInstall}
}

// UninstallOperation returns an uninstall step for pkg.
func UninstallOperation(pkg *Package) PackageOperation {
	return PackageOperation{Package: pkg, Action: ActionUninstall}
}

// Reduce drops install/uninstall pairs of the same package that cancel out,
// preserving the relative order of what remains.
func Reduce(ops []PackageOperation) []PackageOperation {
	type counts struct{ install, uninstall int }
	byKey := make(map[string]*counts)
	for _, op := range ops {
		c := byKey[op.Package.Identity.Key()]
		if c == nil {
			c = &counts{}
			byKey[op.Package.Identity.Key()] = c
		}
		if op.Action == ActionInstall {
			c.install++
		} else {
			c.uninstall++
		}
	}

	result := make([]PackageOperation, 0, len(ops))
	for _, op := range ops {
		c := byKey[op.Package.Identity.Key()]
		if c.install > 0 && c.uninstall > 0 {
			continue
		}
		result = append(result, op)
	}
	return result
}
