package app

import (
	"github.com/felixgeelhaar/uplift/internal/adapters/backup"
	"github.com/felixgeelhaar/uplift/internal/adapters/catalog"
	"github.com/felixgeelhaar/uplift/internal/adapters/fixers"
	"github.com/felixgeelhaar/uplift/internal/adapters/msbuild"
	"github.com/felixgeelhaar/uplift/internal/adapters/nuget"
	"github.com/felixgeelhaar/uplift/internal/adapters/toolchain"
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/readiness"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/upgrade"
)

// services builds the collaborators of a run from its options.
func (u *Upgrader) services(s *upgrade.Session, chooser ports.Chooser) (upgrade.Services, error) {
	opts := s.Options

	registry, restorer, err := u.registry(opts)
	if err != nil {
		return upgrade.Services{}, err
	}
	packageMap, err := u.packageMap(opts)
	if err != nil {
		return upgrade.Services{}, err
	}
	provider, err := u.fixProvider(opts)
	if err != nil {
		return upgrade.Services{}, err
	}

	var store ports.Backup = &ports.NoopBackup{}
	if !opts.SkipBackup {
		backupOpts := []backup.Option{backup.WithLogger(u.log)}
		if opts.BackupDir != "" {
			backupOpts = append(backupOpts, backup.WithRoot(opts.BackupDir))
		}
		store = backup.NewStore(u.fs, backupOpts...)
	}

	return upgrade.Services{
		Workspace: u.workspace,
		Gate:      readiness.NewGate(checks(s.Selector, opts), readiness.WithLogger(u.log)),
		Pipeline: deps.NewPipeline(registry, restorer,
			deps.WithAnalyzers(deps.DefaultAnalyzers(packageMap)...),
			deps.WithMaxIterations(opts.MaxIterations),
			deps.WithLogger(u.log)),
		Fixers:    provider,
		Backup:    store,
		Toolchain: toolchain.NewDotnet(u.runner, s.Target.Major(), u.log),
		Runner:    u.runner,
		Chooser:   chooser,
		Log:       u.log,
	}, nil
}

// registry layers a user catalog over nuget.org, or over the embedded
// catalog when offline. Offline runs resolve the package graph from the
// catalog instead of running a restore.
func (u *Upgrader) registry(opts config.Options) (deps.Registry, deps.Restorer, error) {
	var user *catalog.Catalog
	if opts.Catalog != "" {
		c, err := catalog.Load(u.fs, opts.Catalog)
		if err != nil {
			return nil, nil, config.NewFileNotFoundError(opts.Catalog).WithUnderlying(err)
		}
		user = c
	}

	if opts.Offline {
		embedded, err := catalog.Default()
		if err != nil {
			return nil, nil, err
		}
		source := embedded
		if user != nil {
			source = user
		}
		return catalog.NewLayered(registryOf(user), embedded), catalog.NewRestorer(source), nil
	}

	feed := nuget.NewClient(nuget.WithLogger(u.log))
	return catalog.NewLayered(registryOf(user), feed), msbuild.NewRestorer(u.runner, u.fs, u.log), nil
}

// registryOf avoids a typed nil inside the deps.Registry interface.
func registryOf(c *catalog.Catalog) deps.Registry {
	if c == nil {
		return nil
	}
	return c
}

func (u *Upgrader) packageMap(opts config.Options) (*deps.PackageMap, error) {
	base, err := deps.DefaultPackageMap()
	if err != nil {
		return nil, err
	}
	if opts.PackageMapFile == "" {
		return base, nil
	}
	data, err := u.fs.ReadFile(opts.PackageMapFile)
	if err != nil {
		return nil, config.NewFileNotFoundError(opts.PackageMapFile).WithUnderlying(err)
	}
	custom, err := deps.ParsePackageMap(data)
	if err != nil {
		return nil, config.NewPackageMapError(opts.PackageMapFile, err)
	}
	return base.Merge(custom), nil
}

func (u *Upgrader) fixProvider(opts config.Options) (*fixers.Provider, error) {
	builtin, err := fixers.BuiltinRules()
	if err != nil {
		return nil, err
	}
	rules, err := fixers.Compile(fixers.MergeRules(builtin, opts.Fixers))
	if err != nil {
		return nil, config.NewValidationFailedError("fixers", err.Error())
	}
	return fixers.NewProvider(u.fs, rules, u.log), nil
}

// checks returns the readiness checks, with configured unsupported
// components added to the defaults.
func checks(selector project.TargetSelector, opts config.Options) []readiness.Check {
	components := readiness.DefaultUnsupportedComponents()
	for name, remediation := range opts.Unsupported {
		components[project.Component(name)] = remediation
	}
	return []readiness.Check{
		readiness.TargetSupportedCheck{Selector: selector},
		readiness.CentralPackageManagementCheck{},
		readiness.UnsupportedComponentCheck{Components: components},
	}
}
