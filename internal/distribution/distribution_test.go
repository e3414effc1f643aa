package distribution

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energia/energia-dashboard/internal/domain"
)

func generator(id int64, kw, own float64) domain.Generator {
	return domain.Generator{ID: id, Name: "M" + string(rune('0'+id)), GeneratedKw: domain.Number(kw), OwnUsePercent: domain.Number(own)}
}

func dependent(id, generatorID int64, percent, consumption float64) domain.DependentUnit {
	return domain.DependentUnit{ID: id, GeneratorID: generatorID, ReceivePercent: domain.Number(percent), ConsumptionKw: domain.Number(consumption)}
}

func TestReceivedPower(t *testing.T) {
	assert.Equal(t, 0.0, ReceivedPower(0, 37))
	assert.Equal(t, 0.0, ReceivedPower(0, 250))
	assert.Equal(t, 0.0, ReceivedPower(1234.5, 0))
	assert.Equal(t, 1234.5, ReceivedPower(1234.5, 100))
	assert.Equal(t, 250.0, ReceivedPower(1000, 25))
}

func TestReceivedPowerOutOfRangeIsArithmetic(t *testing.T) {
	assert.Equal(t, -100.0, ReceivedPower(1000, -10))
	assert.Equal(t, 1500.0, ReceivedPower(1000, 150))
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, Totals{}, Aggregate(nil, nil))
	assert.Equal(t, Totals{}, Aggregate([]domain.Generator{}, []domain.DependentUnit{}))
}

func TestAggregateScenario(t *testing.T) {
	generators := []domain.Generator{generator(1, 1000, 50)}
	dependents := []domain.DependentUnit{
		dependent(10, 1, 30, 120),
		dependent(11, 1, 20, 80),
	}

	rows := Allocations(generators, dependents)
	require.Len(t, rows, 2)
	assert.Equal(t, 300.0, rows[0].ReceivedKw)
	assert.Equal(t, 200.0, rows[1].ReceivedKw)

	totals := Aggregate(generators, dependents)
	assert.Equal(t, 1000.0, totals.Generated)
	assert.Equal(t, 200.0, totals.Consumed)
	assert.Equal(t, 500.0, totals.Distributed)
}

func TestAggregateUnresolvedGeneratorContributesZero(t *testing.T) {
	generators := []domain.Generator{generator(1, 1000, 0)}
	dependents := []domain.DependentUnit{
		dependent(10, 1, 10, 5),
		dependent(11, 99, 50, 7),
		{ID: 12, ReceivePercent: 40},
	}

	totals := Aggregate(generators, dependents)
	assert.Equal(t, 100.0, totals.Distributed)
	assert.Equal(t, 12.0, totals.Consumed)

	rows := Allocations(generators, dependents)
	assert.True(t, rows[0].Resolved)
	assert.False(t, rows[1].Resolved)
	assert.Zero(t, rows[1].ReceivedKw)
	assert.False(t, rows[2].Resolved)
}

func TestAggregateNestedGeneratorReference(t *testing.T) {
	generators := []domain.Generator{generator(4, 800, 0)}
	dependents := []domain.DependentUnit{{ID: 1, ReceivePercent: 25, Generator: &domain.Generator{ID: 4}}}

	assert.Equal(t, 200.0, Aggregate(generators, dependents).Distributed)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	generators := []domain.Generator{
		generator(1, 1000.1, 10),
		generator(2, 333.3, 0),
		generator(3, 0.7, 5),
		generator(4, 12345.67, 20),
	}
	dependents := []domain.DependentUnit{
		dependent(1, 1, 33.3, 0.1),
		dependent(2, 1, 12.7, 0.2),
		dependent(3, 2, 45.45, 0.3),
		dependent(4, 3, 99.9, 1e-3),
		dependent(5, 4, 7.77, 1e6),
		dependent(6, 42, 10, 3.3),
	}
	want := Aggregate(generators, dependents)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		g := append([]domain.Generator(nil), generators...)
		d := append([]domain.DependentUnit(nil), dependents...)
		rng.Shuffle(len(g), func(a, b int) { g[a], g[b] = g[b], g[a] })
		rng.Shuffle(len(d), func(a, b int) { d[a], d[b] = d[b], d[a] })
		assert.Equal(t, want, Aggregate(g, d))
	}
}

func TestAggregateDuplicateGeneratorIDIsOrderIndependent(t *testing.T) {
	dependents := []domain.DependentUnit{dependent(1, 1, 50, 0)}
	a := []domain.Generator{generator(1, 1000, 0), generator(1, 10, 0)}
	b := []domain.Generator{generator(1, 10, 0), generator(1, 1000, 0)}

	assert.Equal(t, Aggregate(a, dependents), Aggregate(b, dependents))
	assert.Equal(t, 5.0, Aggregate(a, dependents).Distributed)
	assert.Equal(t, Allocations(a, dependents), Allocations(b, dependents))
}

func TestDecodedNonFiniteFiguresStayEncodable(t *testing.T) {
	var generators []domain.Generator
	var dependents []domain.DependentUnit
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"geracaoKw":"NaN","porcentagemMatriz":"Infinity"},{"id":2,"geracaoKw":100}]`), &generators))
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"matriz":{"id":2},"porcentagemEnergia":"-Infinity","consumoKw":"NaN"}]`), &dependents))

	totals := Aggregate(generators, dependents)
	assert.Equal(t, Totals{Generated: 100}, totals)

	_, err := json.Marshal(totals)
	require.NoError(t, err)
	_, err = json.Marshal(SummarizeAll(generators, dependents))
	require.NoError(t, err)
	_, err = json.Marshal(Allocations(generators, dependents))
	require.NoError(t, err)
}

func TestShareOfTotal(t *testing.T) {
	assert.Equal(t, 25.0, ShareOfTotal(250, 1000))
	assert.Equal(t, 0.0, ShareOfTotal(0, 0))
	assert.Equal(t, 0.0, ShareOfTotal(10, 0))
}

func TestSummarize(t *testing.T) {
	g := generator(1, 1000, 40)
	dependents := []domain.DependentUnit{
		dependent(10, 1, 30, 0),
		dependent(11, 1, 20, 0),
		dependent(12, 2, 90, 0),
	}

	s := Summarize(g, dependents, 4000)
	assert.Equal(t, 2, s.DependentCount)
	assert.Equal(t, 50.0, s.DependentPercent)
	assert.Equal(t, 10.0, s.AvailablePercent)
	assert.Equal(t, 400.0, s.OwnUseKw)
	assert.Equal(t, 500.0, s.DistributedKw)
	assert.Equal(t, 100.0, s.AvailableKw)
	assert.Equal(t, 25.0, s.ShareOfTotal)
	assert.False(t, s.OverAllocated)

	over := Summarize(generator(2, 500, 20), dependents, 0)
	assert.True(t, over.OverAllocated)
	assert.Equal(t, -10.0, over.AvailablePercent)
	assert.Zero(t, over.ShareOfTotal)
}

func TestSummarizeAllUsesFleetTotal(t *testing.T) {
	generators := []domain.Generator{generator(1, 750, 0), generator(2, 250, 0)}
	summaries := SummarizeAll(generators, nil)
	require.Len(t, summaries, 2)
	assert.Equal(t, 75.0, summaries[0].ShareOfTotal)
	assert.Equal(t, 25.0, summaries[1].ShareOfTotal)
}

func TestEnergyFor(t *testing.T) {
	g := generator(1, 1000, 0)
	d := dependent(10, 1, 30, 0)

	e := EnergyFor(d, &g)
	assert.Equal(t, 300.0, e.ReceivedKw)
	assert.Equal(t, 1000.0, e.GeneratorTotalKw)

	assert.Zero(t, EnergyFor(d, nil).ReceivedKw)
	other := generator(2, 1000, 0)
	assert.Zero(t, EnergyFor(d, &other).ReceivedKw)
}
