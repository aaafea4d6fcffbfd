package ui

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"github.com/doridoridoriand/netsav-go/internal/state"
)

func TestPropertyGroupsSplitReferences(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("every target lands in exactly one group", prop.ForAll(
		func(flags []bool) bool {
			snapshot := make([]state.TargetStatus, 0, len(flags))
			refs := 0
			for i, reference := range flags {
				if reference {
					refs++
				}
				snapshot = append(snapshot, state.TargetStatus{Name: fmt.Sprintf("t%d", i), Reference: reference})
			}

			seen := 0
			for _, group := range groupTargets(snapshot) {
				if len(group.Targets) == 0 {
					return false
				}
				for _, target := range group.Targets {
					if target.Reference != (group.Name == "references") {
						return false
					}
					seen++
				}
				if group.Name == "references" && len(group.Targets) != refs {
					return false
				}
			}
			return seen == len(flags)
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			count := genParams.Rng.Intn(20)
			flags := make([]bool, count)
			for i := range flags {
				flags[i] = genParams.Rng.Intn(3) == 0
			}
			return gopter.NewGenResult(flags, gopter.NoShrinker)
		}),
	))

	props.Property("bar always fills its width", prop.ForAll(
		func(points int, width int) bool {
			history := make([]state.CyclePoint, points)
			for i := range history {
				if i%2 == 0 {
					history[i].State = state.Available
				}
			}
			return len(buildBar(history, width)) == width
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(80), gopter.NoShrinker)
		}),
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(60), gopter.NoShrinker)
		}),
	))

	props.TestingRun(t)
}
