// Package distribution computes how a generator's output is shared among its
// dependent units. Every view, report and export goes through these
// functions; none of them performs I/O or returns errors.
package distribution

import (
	"sort"

	"github.com/energia/energia-dashboard/internal/domain"
)

// ReceivedPower is the share of generatedKw a dependent gets for its
// receivePercent. Inputs are not range checked.
func ReceivedPower(generatedKw, receivePercent float64) float64 {
	return generatedKw * receivePercent / 100
}

// ShareOfTotal returns generatedKw as a percentage of totalGenerated, or 0
// when there is nothing generated at all.
func ShareOfTotal(generatedKw, totalGenerated float64) float64 {
	if totalGenerated == 0 {
		return 0
	}
	return generatedKw / totalGenerated * 100
}

type Totals struct {
	Generated   float64 `json:"total_generated_kw"`
	Consumed    float64 `json:"total_consumed_kw"`
	Distributed float64 `json:"total_distributed_kw"`
}

// Aggregate sums the fleet. A dependent whose generator is not in generators
// contributes nothing to Distributed.
func Aggregate(generators []domain.Generator, dependents []domain.DependentUnit) Totals {
	byID := index(generators)

	generated := make([]float64, 0, len(generators))
	for _, g := range generators {
		generated = append(generated, g.GeneratedKw.Float())
	}

	consumed := make([]float64, 0, len(dependents))
	distributed := make([]float64, 0, len(dependents))
	for _, d := range dependents {
		consumed = append(consumed, d.ConsumptionKw.Float())
		if g, ok := byID[d.GeneratorRef()]; ok {
			distributed = append(distributed, ReceivedPower(g.GeneratedKw.Float(), d.ReceivePercent.Float()))
		}
	}

	return Totals{
		Generated:   sum(generated),
		Consumed:    sum(consumed),
		Distributed: sum(distributed),
	}
}

// Allocation is one dependent's row in the distribution table.
type Allocation struct {
	Dependent     domain.DependentUnit `json:"dependent"`
	GeneratorID   int64                `json:"generator_id"`
	GeneratorName string               `json:"generator_name,omitempty"`
	ReceivedKw    float64              `json:"received_kw"`
	Resolved      bool                 `json:"resolved"`
}

func Allocations(generators []domain.Generator, dependents []domain.DependentUnit) []Allocation {
	byID := index(generators)
	out := make([]Allocation, 0, len(dependents))
	for _, d := range dependents {
		a := Allocation{Dependent: d, GeneratorID: d.GeneratorRef()}
		if g, ok := byID[a.GeneratorID]; ok {
			a.GeneratorName = g.Name
			a.ReceivedKw = ReceivedPower(g.GeneratedKw.Float(), d.ReceivePercent.Float())
			a.Resolved = true
		}
		out = append(out, a)
	}
	return out
}

// DependentEnergy is what a single dependent receives from its generator.
type DependentEnergy struct {
	Dependent        domain.DependentUnit `json:"dependent"`
	ReceivedKw       float64              `json:"received_kw"`
	GeneratorTotalKw float64              `json:"generator_total_kw"`
}

// EnergyFor computes the received power of d. g may be nil when the
// generator could not be loaded.
func EnergyFor(d domain.DependentUnit, g *domain.Generator) DependentEnergy {
	out := DependentEnergy{Dependent: d}
	if g == nil || g.ID != d.GeneratorRef() {
		return out
	}
	out.GeneratorTotalKw = g.GeneratedKw.Float()
	out.ReceivedKw = ReceivedPower(out.GeneratorTotalKw, d.ReceivePercent.Float())
	return out
}

// Summary is the per-generator view: how much is used locally, how much is
// handed out and how much is still free.
type Summary struct {
	Generator        domain.Generator `json:"generator"`
	DependentCount   int              `json:"dependent_count"`
	OwnUsePercent    float64          `json:"own_use_percent"`
	DependentPercent float64          `json:"dependent_percent"`
	AvailablePercent float64          `json:"available_percent"`
	OwnUseKw         float64          `json:"own_use_kw"`
	DistributedKw    float64          `json:"distributed_kw"`
	AvailableKw      float64          `json:"available_kw"`
	ShareOfTotal     float64          `json:"share_of_total"`
	OverAllocated    bool             `json:"over_allocated"`
}

// Summarize builds the summary of g. Only dependents referencing g are
// counted, so the full dependent list may be passed.
func Summarize(g domain.Generator, dependents []domain.DependentUnit, totalGenerated float64) Summary {
	generatedKw := g.GeneratedKw.Float()
	own := g.OwnUsePercent.Float()

	var percents, received []float64
	for _, d := range dependents {
		if d.GeneratorRef() != g.ID {
			continue
		}
		p := d.ReceivePercent.Float()
		percents = append(percents, p)
		received = append(received, ReceivedPower(generatedKw, p))
	}

	s := Summary{
		Generator:        g,
		DependentCount:   len(percents),
		OwnUsePercent:    own,
		DependentPercent: sum(percents),
		OwnUseKw:         ReceivedPower(generatedKw, own),
		DistributedKw:    sum(received),
		ShareOfTotal:     ShareOfTotal(generatedKw, totalGenerated),
	}
	s.AvailablePercent = 100 - own - s.DependentPercent
	s.AvailableKw = ReceivedPower(generatedKw, s.AvailablePercent)
	s.OverAllocated = s.AvailablePercent < -percentTolerance
	return s
}

// SummarizeAll summarizes every generator against the fleet total.
func SummarizeAll(generators []domain.Generator, dependents []domain.DependentUnit) []Summary {
	total := Aggregate(generators, nil).Generated
	out := make([]Summary, 0, len(generators))
	for _, g := range generators {
		out = append(out, Summarize(g, dependents, total))
	}
	return out
}

// index maps generators by ID. When an ID repeats, the entry with the lower
// output (then the lower name) wins, whatever the input order.
func index(generators []domain.Generator) map[int64]domain.Generator {
	byID := make(map[int64]domain.Generator, len(generators))
	for _, g := range generators {
		if g.ID == 0 {
			continue
		}
		if prev, ok := byID[g.ID]; ok && !preferred(g, prev) {
			continue
		}
		byID[g.ID] = g
	}
	return byID
}

func preferred(a, b domain.Generator) bool {
	if a.GeneratedKw.Float() != b.GeneratedKw.Float() {
		return a.GeneratedKw.Float() < b.GeneratedKw.Float()
	}
	return a.Name < b.Name
}

// sum adds values in ascending order so the result does not depend on the
// order the caller collected them in.
func sum(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var total float64
	for _, v := range sorted {
		total += v
	}
	return total
}
