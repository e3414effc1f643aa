package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

// Overview is the landing page: record counts and fleet totals.
type Overview struct {
	Generators    int                 `json:"matrizes"`
	Dependents    int                 `json:"filiais"`
	Users         int                 `json:"users"`
	Files         int                 `json:"files"`
	Totals        distribution.Totals `json:"totals"`
	OverAllocated int                 `json:"over_allocated"`
}

type DashboardService struct {
	remote Remote
}

func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	var (
		gens  []domain.Generator
		deps  []domain.DependentUnit
		users []domain.User
		files []domain.FileInfo
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		gens, err = s.remote.ListGenerators(ctx)
		return wrap("list matrizes", err)
	})
	eg.Go(func() (err error) {
		deps, err = s.remote.ListDependents(ctx)
		return wrap("list filiais", err)
	})
	eg.Go(func() (err error) {
		users, err = s.remote.ListUsers(ctx)
		return wrap("list users", err)
	})
	eg.Go(func() (err error) {
		files, err = s.remote.ListFiles(ctx)
		return wrap("list files", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	o := &Overview{
		Generators: len(gens),
		Dependents: len(deps),
		Users:      len(users),
		Files:      len(files),
		Totals:     distribution.Aggregate(gens, deps),
	}
	for _, c := range distribution.Checks(gens, deps) {
		if c.Exceeded {
			o.OverAllocated++
		}
	}
	return o, nil
}
