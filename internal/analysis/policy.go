package analysis

import (
	"math/rand"

	"github.com/ignite/ads-pilot/internal/metrics"
)

// RandomExplore rolls a seeded die for each exploratory branch. This is the
// production policy in demo mode; tests use NeverExplore or AlwaysExplore.
type RandomExplore struct {
	rng         *rand.Rand
	experimentP float64
	promotionP  float64
}

// NewRandomExplore creates a policy with the given branch probabilities
func NewRandomExplore(seed int64, experimentP, promotionP float64) *RandomExplore {
	return &RandomExplore{
		rng:         rand.New(rand.NewSource(seed)),
		experimentP: experimentP,
		promotionP:  promotionP,
	}
}

func (p *RandomExplore) ProposeExperiment(*metrics.Snapshot) bool {
	return p.rng.Float64() < p.experimentP
}

func (p *RandomExplore) ProposePromotion(*metrics.Snapshot) bool {
	return p.rng.Float64() < p.promotionP
}
