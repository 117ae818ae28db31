package worker

import (
	"context"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_MeasureInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("the op runs exactly n times and the mean is total over n", prop.ForAll(
		func(n int) bool {
			calls := 0
			op := Operation{Name: "noop", Run: func(context.Context) error {
				calls++
				return nil
			}}

			m, err := Measure(context.Background(), op, n)
			if err != nil {
				return false
			}
			return calls == n && m.CompleteCount == n && len(m.Rts) == n &&
				math.Abs(m.Mean-m.TotalRt/float64(n)) < 1e-15 && m.Mean >= 0
		},
		gen.IntRange(1, 50),
	))

	properties.Property("non-positive repetitions never call the op", prop.ForAll(
		func(n int) bool {
			called := false
			op := Operation{Name: "noop", Run: func(context.Context) error {
				called = true
				return nil
			}}

			m, err := Measure(context.Background(), op, n)
			return m == nil && err != nil && !called
		},
		gen.IntRange(-50, 0),
	))

	properties.TestingRun(t)
}
