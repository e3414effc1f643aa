package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

// allocator applies the configured policy to a check. Under warn the
// excess is logged and, when an alerter is configured, announced.
type allocator struct {
	policy distribution.Policy
	alerts Alerter
}

func (a *allocator) apply(ctx context.Context, c distribution.Check) error {
	if !c.Exceeded || a.policy == distribution.PolicyOff {
		return nil
	}
	if err := a.policy.Apply(c); err != nil {
		return err
	}
	log.Warn().
		Int64("matriz_id", c.GeneratorID).
		Float64("own_use_percent", c.OwnUsePercent).
		Float64("dependent_percent", c.DependentPercent).
		Msg("matriz allocation exceeds 100%")
	if a.alerts != nil {
		if err := a.alerts.SendAllocationAlert(ctx, []distribution.Check{c}); err != nil {
			log.Error().Err(err).Int64("matriz_id", c.GeneratorID).Msg("allocation alert failed")
		}
	}
	return nil
}

// withOwner fills in the generator reference of dependents listed under g,
// which the API returns without one.
func withOwner(g *domain.Generator) []domain.DependentUnit {
	out := make([]domain.DependentUnit, len(g.Dependents))
	for i, d := range g.Dependents {
		if d.GeneratorRef() == 0 {
			d.GeneratorID = g.ID
		}
		out[i] = d
	}
	return out
}

type GeneratorService struct {
	api   GeneratorAPI
	deps  DependentAPI
	alloc *allocator
}

func (s *GeneratorService) List(ctx context.Context) ([]domain.Generator, error) {
	out, err := s.api.ListGenerators(ctx)
	return out, wrap("list matrizes", err)
}

func (s *GeneratorService) Get(ctx context.Context, id int64) (*domain.Generator, error) {
	g, err := s.api.GetGenerator(ctx, id)
	return g, wrap("get matriz", err)
}

func (s *GeneratorService) Search(ctx context.Context, q string) ([]domain.Generator, error) {
	if q == "" {
		return s.List(ctx)
	}
	out, err := s.api.SearchGenerators(ctx, q)
	return out, wrap("search matrizes", err)
}

func (s *GeneratorService) Create(ctx context.Context, g domain.Generator) (*domain.Generator, error) {
	g.ID = 0
	g.Dependents = nil
	if err := Validate(g); err != nil {
		return nil, err
	}
	out, err := s.api.CreateGenerator(ctx, g)
	return out, wrap("create matriz", err)
}

// Update replaces the editable fields of a matriz. Raising its own-use
// percentage is checked against the shares already handed out.
func (s *GeneratorService) Update(ctx context.Context, id int64, g domain.Generator) (*domain.Generator, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	current, err := s.api.GetGenerator(ctx, id)
	if err != nil {
		return nil, wrap("get matriz", err)
	}
	g.ID = id
	if err := s.alloc.apply(ctx, distribution.CheckAllocation(g, withOwner(current), 0, 0)); err != nil {
		return nil, err
	}
	g.Dependents = nil
	out, err := s.api.UpdateGenerator(ctx, id, g)
	return out, wrap("update matriz", err)
}

func (s *GeneratorService) Delete(ctx context.Context, id int64) error {
	return wrap("delete matriz", s.api.DeleteGenerator(ctx, id))
}

// Summary is the matriz detail view: its own figures against the fleet.
func (s *GeneratorService) Summary(ctx context.Context, id int64) (*distribution.Summary, error) {
	var (
		g   *domain.Generator
		all []domain.Generator
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		g, err = s.api.GetGenerator(ctx, id)
		return wrap("get matriz", err)
	})
	eg.Go(func() (err error) {
		all, err = s.api.ListGenerators(ctx)
		return wrap("list matrizes", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	total := distribution.Aggregate(all, nil).Generated
	sum := distribution.Summarize(*g, withOwner(g), total)
	return &sum, nil
}

// Dependents lists the filiais of one matriz.
func (s *GeneratorService) Dependents(ctx context.Context, id int64) ([]domain.DependentUnit, error) {
	out, err := s.deps.DependentsByGenerator(ctx, id)
	return out, wrap("list filiais of matriz", err)
}
