package upgrade

import (
	"context"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

type finalizeStep struct {
	session *Session
	svc     Services
}

func (f *finalizeStep) IsApplicable(context.Context) (bool, error) {
	return f.session.Current != nil, nil
}

func (f *finalizeStep) Initialize(context.Context) (step.Evaluation, error) {
	return step.Incomplete("Mark "+f.session.Current.Project.Name()+" as upgraded", step.RiskNone), nil
}

func (f *finalizeStep) Apply(ctx context.Context) (step.Evaluation, error) {
	name := f.session.Current.Project.Name()
	path := f.session.finish()
	f.svc.logger().Info(ctx, "project upgraded", ports.F("project", name), ports.F("path", path))
	return step.Complete(name + " upgraded"), nil
}
