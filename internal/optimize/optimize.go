// Package optimize содержит интерфейс оптимизатора фазовой маски, его
// детерминированную заглушку и фоновый запуск задач по одной на дизайн.
package optimize

import (
	"context"

	"doe-studio/internal/doe"
)

// Result is one complete optimization output. It is persisted as opaque
// JSON on the owning design and replaced as a whole on every run.
type Result struct {
	// PhaseMap holds values in 0..255.
	PhaseMap        [][]int     `json:"phaseMap"`
	TargetIntensity [][]float64 `json:"targetIntensity"`
	ActualIntensity [][]float64 `json:"actualIntensity"`
	OrderEnergies   []float64   `json:"orderEnergies"`
	Efficiency      Efficiency  `json:"efficiency"`
	Recipe          string      `json:"recipe"`
	PhaseLevels     int         `json:"phaseLevels"`
}

// Efficiency are the summary figures of a result.
type Efficiency struct {
	TotalEfficiency    float64 `json:"totalEfficiency"`
	UniformityError    float64 `json:"uniformityError"`
	ZerothOrderLeakage float64 `json:"zerothOrderLeakage"`
}

// Optimizer computes a phase map for a parameter set. Implementations must
// return ctx.Err() promptly once ctx is done.
type Optimizer interface {
	Optimize(ctx context.Context, p doe.Params) (*Result, error)
}

// Recipe levels of the fabrication processes; 0 means continuous phase.
var recipeLevels = map[string]int{
	"ideal":        0,
	"binary":       2,
	"multilevel4":  4,
	"multilevel8":  8,
	"multilevel16": 16,
	"grayscale":    256,
}

// PhaseLevels returns the number of phase levels of a fabrication recipe.
// Unknown recipes and disabled fabrication give continuous phase (0).
func PhaseLevels(c doe.Common) int {
	if !c.FabricationEnabled {
		return 0
	}
	return recipeLevels[c.FabricationRecipe]
}
