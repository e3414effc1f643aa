// Package report assembles the fleet distribution report and renders it
// as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

const (
	Filename    = "relatorio_energia.csv"
	ContentType = "text/csv; charset=utf-8"
)

type Report struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	Totals        distribution.Totals       `json:"totals"`
	Generators    []distribution.Summary    `json:"generators"`
	Allocations   []distribution.Allocation `json:"allocations"`
	OverAllocated []distribution.Check      `json:"over_allocated,omitempty"`
}

func Build(generators []domain.Generator, dependents []domain.DependentUnit, now time.Time) Report {
	r := Report{
		GeneratedAt: now.UTC(),
		Totals:      distribution.Aggregate(generators, dependents),
		Generators:  distribution.SummarizeAll(generators, dependents),
		Allocations: distribution.Allocations(generators, dependents),
	}
	for _, c := range distribution.Checks(generators, dependents) {
		if c.Exceeded {
			r.OverAllocated = append(r.OverAllocated, c)
		}
	}
	return r
}

var header = []string{"Tipo", "Nome", "Matriz", "Endereco", "Energia (kW)", "Percentual", "Energia Recebida (kW)"}

// WriteCSV writes one row per generator, one per dependent and a closing
// totals row.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range r.Generators {
		g := s.Generator
		row := []string{"Matriz", g.Name, "-", g.Address, FormatKw(g.GeneratedKw.Float()), FormatPercent(s.ShareOfTotal), FormatKw(s.DistributedKw)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	for _, a := range r.Allocations {
		d := a.Dependent
		generatorName := a.GeneratorName
		if !a.Resolved {
			generatorName = "N/A"
		}
		row := []string{"Filial", d.Name, generatorName, d.Address, FormatKw(d.ConsumptionKw.Float()), FormatPercent(d.ReceivePercent.Float()), FormatKw(a.ReceivedKw)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	total := []string{"Total", "", "", "", FormatKw(r.Totals.Generated), "", FormatKw(r.Totals.Distributed)}
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// FormatKw renders at most two decimals without float noise (0.1+0.2 is "0.3").
func FormatKw(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

func FormatPercent(v float64) string {
	return FormatKw(v) + "%"
}
