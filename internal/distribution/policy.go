package distribution

import (
	"fmt"
	"strings"

	"github.com/energia/energia-dashboard/internal/domain"
)

// Policy decides what happens when a generator's own use plus its
// dependents' shares exceed 100%.
type Policy string

const (
	PolicyOff     Policy = "off"
	PolicyWarn    Policy = "warn"
	PolicyEnforce Policy = "enforce"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyOff, PolicyWarn, PolicyEnforce:
		return p, nil
	case "":
		return PolicyWarn, nil
	default:
		return "", fmt.Errorf("unknown allocation policy %q", s)
	}
}

// percentTolerance absorbs float noise such as 33.33+33.33+33.34.
const percentTolerance = 1e-9

// Check is the outcome of evaluating one generator's allocation.
type Check struct {
	GeneratorID      int64   `json:"generator_id"`
	GeneratorName    string  `json:"generator_name"`
	OwnUsePercent    float64 `json:"own_use_percent"`
	DependentPercent float64 `json:"dependent_percent"`
	AvailablePercent float64 `json:"available_percent"`
	Exceeded         bool    `json:"exceeded"`
}

// CheckAllocation evaluates g as if the dependent excludeID (0 for none)
// held proposed percent instead of its current share. Dependents of other
// generators are ignored.
func CheckAllocation(g domain.Generator, dependents []domain.DependentUnit, excludeID int64, proposed float64) Check {
	var percents []float64
	for _, d := range dependents {
		if d.GeneratorRef() != g.ID || (excludeID != 0 && d.ID == excludeID) {
			continue
		}
		percents = append(percents, d.ReceivePercent.Float())
	}
	own := g.OwnUsePercent.Float()
	existing := sum(percents)

	c := Check{
		GeneratorID:      g.ID,
		GeneratorName:    g.Name,
		OwnUsePercent:    own,
		DependentPercent: existing + proposed,
		AvailablePercent: 100 - own - existing,
	}
	c.Exceeded = own+c.DependentPercent > 100+percentTolerance
	return c
}

// AllocationError is returned under PolicyEnforce.
type AllocationError struct {
	Check Check
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation for matriz %d exceeds 100%%: %.2f%% available",
		e.Check.GeneratorID, e.Check.AvailablePercent)
}

// Apply returns an *AllocationError when the check exceeded and the policy
// enforces it. Warn and off never fail; callers report warnings themselves.
func (p Policy) Apply(c Check) error {
	if p == PolicyEnforce && c.Exceeded {
		return &AllocationError{Check: c}
	}
	return nil
}

// Checks reports, for each generator, whether its current allocation
// exceeds 100%.
func Checks(generators []domain.Generator, dependents []domain.DependentUnit) []Check {
	out := make([]Check, 0, len(generators))
	for _, g := range generators {
		out = append(out, CheckAllocation(g, dependents, 0, 0))
	}
	return out
}
