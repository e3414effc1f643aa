package service

import (
	"context"
	"errors"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

type DependentService struct {
	api   DependentAPI
	gens  GeneratorAPI
	alloc *allocator
}

func (s *DependentService) List(ctx context.Context) ([]domain.DependentUnit, error) {
	out, err := s.api.ListDependents(ctx)
	return out, wrap("list filiais", err)
}

func (s *DependentService) Get(ctx context.Context, id int64) (*domain.DependentUnit, error) {
	d, err := s.api.GetDependent(ctx, id)
	return d, wrap("get filial", err)
}

func (s *DependentService) ByGenerator(ctx context.Context, generatorID int64) ([]domain.DependentUnit, error) {
	out, err := s.api.DependentsByGenerator(ctx, generatorID)
	return out, wrap("list filiais of matriz", err)
}

func (s *DependentService) Search(ctx context.Context, q string) ([]domain.DependentUnit, error) {
	if q == "" {
		return s.List(ctx)
	}
	out, err := s.api.SearchDependents(ctx, q)
	return out, wrap("search filiais", err)
}

// Create adds a filial under an existing matriz.
func (s *DependentService) Create(ctx context.Context, d domain.DependentUnit) (*domain.DependentUnit, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	ref := d.GeneratorRef()
	if ref == 0 {
		return nil, ErrGeneratorRequired
	}
	d.ID = 0
	if err := s.checkAllocation(ctx, ref, 0, d.ReceivePercent.Float()); err != nil {
		return nil, err
	}
	out, err := s.api.CreateDependent(ctx, d)
	return out, wrap("create filial", err)
}

// Update edits a filial. The matriz it belongs to is fixed at creation.
func (s *DependentService) Update(ctx context.Context, id int64, d domain.DependentUnit) (*domain.DependentUnit, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	current, err := s.api.GetDependent(ctx, id)
	if err != nil {
		return nil, wrap("get filial", err)
	}
	ref := current.GeneratorRef()
	if want := d.GeneratorRef(); want != 0 && want != ref {
		return nil, ErrGeneratorImmutable
	}
	d.ID = id
	d.GeneratorID = ref
	d.Generator = nil
	if ref != 0 {
		if err := s.checkAllocation(ctx, ref, id, d.ReceivePercent.Float()); err != nil {
			return nil, err
		}
	}
	out, err := s.api.UpdateDependent(ctx, id, d)
	return out, wrap("update filial", err)
}

func (s *DependentService) Delete(ctx context.Context, id int64) error {
	return wrap("delete filial", s.api.DeleteDependent(ctx, id))
}

// Energy computes what filial id receives. A filial whose matriz no longer
// exists receives nothing.
func (s *DependentService) Energy(ctx context.Context, id int64) (*distribution.DependentEnergy, error) {
	d, err := s.api.GetDependent(ctx, id)
	if err != nil {
		return nil, wrap("get filial", err)
	}
	var g *domain.Generator
	if ref := d.GeneratorRef(); ref != 0 {
		g, err = s.gens.GetGenerator(ctx, ref)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			return nil, wrap("get matriz", err)
		}
	}
	e := distribution.EnergyFor(*d, g)
	return &e, nil
}

func (s *DependentService) checkAllocation(ctx context.Context, generatorID, excludeID int64, proposed float64) error {
	g, err := s.gens.GetGenerator(ctx, generatorID)
	if err != nil {
		return wrap("get matriz", err)
	}
	return s.alloc.apply(ctx, distribution.CheckAllocation(*g, withOwner(g), excludeID, proposed))
}
