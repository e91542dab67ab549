package upgrade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/kballard/go-shellquote"
)

// projectPlaceholder in converter arguments is replaced by the project file.
const projectPlaceholder = "{project}"

type convertStep struct {
	session *Session
	svc     Services
}

func (c *convertStep) IsApplicable(context.Context) (bool, error) {
	return c.session.Current != nil, nil
}

func (c *convertStep) Initialize(context.Context) (step.Evaluation, error) {
	p := c.session.Current.Project
	if p.IsSdkStyle() {
		return step.Complete(p.Name() + " is already SDK style"), nil
	}
	return step.Incomplete("Convert "+p.Name()+" to SDK style", step.RiskMedium), nil
}

func (c *convertStep) Apply(ctx context.Context) (step.Evaluation, error) {
	p := c.session.Current.Project

	if c.svc.Toolchain != nil {
		if err := c.svc.Toolchain.TryEnsureRegistered(ctx); err != nil {
			return step.Evaluation{}, err
		}
	}

	name, args, err := ConverterCommand(c.session.Options.Converter.Command, c.session.Options.Converter.Args, p.FilePath())
	if err != nil {
		return step.Evaluation{}, err
	}
	c.svc.logger().Info(ctx, "converting project", ports.F("project", p.Name()),
		ports.F("command", ports.CommandCall{Command: name, Args: args}.String()))

	res, err := c.svc.Runner.Run(ctx, name, args...)
	if err != nil {
		return step.Evaluation{}, fmt.Errorf("failed to run %s: %w", name, err)
	}
	if !res.Success() {
		return step.Failed(fmt.Sprintf("%s exited with %d: %s", name, res.ExitCode, res.Output())), nil
	}

	// The converter rewrote the file behind our back.
	if err := p.Reload(ctx); err != nil {
		return step.Evaluation{}, fmt.Errorf("failed to reload %s: %w", p.Name(), err)
	}
	if !p.IsSdkStyle() {
		return step.Failed(fmt.Sprintf("%s did not convert %s to SDK style", name, p.Name())), nil
	}
	return step.Complete("Converted " + p.Name() + " to SDK style"), nil
}

// ConverterCommand builds the converter invocation. command is a shell-style
// command line; args are appended, with {project} replaced by the project
// file. Without a placeholder the project is passed as -p <file>.
func ConverterCommand(command string, args []string, projectFile string) (string, []string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return "", nil, fmt.Errorf("invalid converter command %q: %w", command, err)
	}
	if len(words) == 0 {
		return "", nil, errors.New("no converter command configured")
	}

	out := make([]string, 0, len(words)+len(args)+1)
	placed := false
	for _, a := range append(words[1:], args...) {
		if strings.Contains(a, projectPlaceholder) {
			placed = true
			a = strings.ReplaceAll(a, projectPlaceholder, projectFile)
		}
		out = append(out, a)
	}
	if !placed {
		out = append(out, "-p", projectFile)
	}
	return words[0], out, nil
}
