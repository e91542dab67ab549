package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no --config path is given.
const DefaultConfigFile = "uplift.yaml"

// Options configures an upgrade run. Values come from uplift.yaml and are
// overridden by command-line flags.
type Options struct {
	Target            string            `yaml:"target" validate:"required,tfm"`
	EntryPoints       []string          `yaml:"entry_points,omitempty" validate:"dive,required"`
	SkipBackup        bool              `yaml:"skip_backup,omitempty"`
	BackupDir         string            `yaml:"backup_dir,omitempty"`
	IgnoreUnsupported bool              `yaml:"ignore_unsupported,omitempty"`
	Acknowledge       bool              `yaml:"acknowledge,omitempty"`
	NonInteractive    bool              `yaml:"non_interactive,omitempty"`
	KeepNetStandard   bool              `yaml:"keep_netstandard,omitempty"`
	BlockOnFailure    bool              `yaml:"block_on_failure,omitempty"`
	MaxIterations     int               `yaml:"max_iterations" validate:"gte=1,lte=10"`
	PackageMapFile    string            `yaml:"package_map,omitempty"`
	Catalog           string            `yaml:"catalog,omitempty"`
	Offline           bool              `yaml:"offline,omitempty"`
	Converter         ConverterOptions  `yaml:"converter"`
	Fixers            []FixRule         `yaml:"fixers,omitempty" validate:"dive"`
	Unsupported       map[string]string `yaml:"unsupported_components,omitempty"`
	Log               LogOptions        `yaml:"log"`
}

// ConverterOptions names the external tool that converts classic projects
// to SDK style.
type ConverterOptions struct {
	Command string   `yaml:"command" validate:"required"`
	Args    []string `yaml:"args,omitempty"`
}

// FixRule is a source rewrite applied by the regex fix provider.
type FixRule struct {
	ID      string `yaml:"id" validate:"required"`
	Title   string `yaml:"title,omitempty"`
	Glob    string `yaml:"glob" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`
	Replace string `yaml:"replace"`
	Risk    string `yaml:"risk,omitempty" validate:"omitempty,oneof=none low medium high"`
	// Manual rules only report matches; the user fixes them by hand.
	Manual bool `yaml:"manual,omitempty"`
}

// LogOptions controls console logging.
type LogOptions struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json,omitempty"`
	// File receives every entry, debug included, as JSON lines.
	File string `yaml:"file,omitempty"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Target:        "net8.0",
		MaxIterations: 3,
		Converter: ConverterOptions{
			Command: "try-convert",
			Args:    []string{"--keep-current-tfms"},
		},
		Log: LogOptions{Level: "info"},
	}
}

// Load reads options from path on top of DefaultOptions. An empty path reads
// uplift.yaml from the working directory if it exists.
func Load(path string) (Options, error) {
	opts := DefaultOptions()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return opts, NewConfigNotFoundError(path)
			}
			return opts, nil
		}
		return opts, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, NewYAMLParseError(path, err)
	}
	return opts, nil
}

// ExpandPaths resolves a leading ~ in every file and directory option.
func (o *Options) ExpandPaths() {
	for _, p := range []*string{&o.BackupDir, &o.PackageMapFile, &o.Catalog, &o.Log.File} {
		*p = ports.ExpandPath(*p)
	}
}

// TargetFramework parses the configured target.
func (o Options) TargetFramework() (tfm.Framework, error) {
	fw, err := tfm.Parse(o.Target)
	if err != nil {
		return tfm.Framework{}, NewTargetInvalidError(o.Target, err)
	}
	if !isUpgradeTarget(fw) {
		return tfm.Framework{}, NewTargetInvalidError(o.Target, nil)
	}
	return fw, nil
}

// Validate checks the options and returns an *ErrorList describing every
// problem found, or nil.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	list := NewErrorList()
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Options.")
		if fe.Tag() == "tfm" {
			list.Add(NewTargetInvalidError(fmt.Sprint(fe.Value()), nil).WithContext(field))
			continue
		}
		list.AddValidation(field, describe(fe), suggestionFor(fe))
	}
	return list.AsError()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("tfm", validateTFM)
	return v
}

func validateTFM(fl validator.FieldLevel) bool {
	fw, err := tfm.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return isUpgradeTarget(fw)
}

// isUpgradeTarget reports whether fw names a modern .NET generation.
func isUpgradeTarget(fw tfm.Framework) bool {
	switch fw.Family() {
	case tfm.FamilyNet, tfm.FamilyNetCoreApp:
		return true
	default:
		return false
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

func suggestionFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Set '%s' in %s or pass it as a flag.", fe.Field(), DefaultConfigFile)
	case "oneof":
		return fmt.Sprintf("Use one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return ""
	}
}
