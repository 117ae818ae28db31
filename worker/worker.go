package worker

import (
	"context"
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"

	benchErrors "tradebench/errors"
	"tradebench/util"
)

// Operation is one timed call. Its results are discarded by the harness;
// only the error is kept.
type Operation struct {
	Name string
	Run  func(ctx context.Context) error
}

type Metric struct {
	Rts           []float64 // list of the response times (seconds) of each repetition
	TotalRt       float64   // sum of the response times
	CompleteCount int       // number of completed repetitions
	Mean          float64   // TotalRt / repetitions
}

// P95 returns the 95th percentile response time.
func (m *Metric) P95() float64 {
	return util.Percentile(m.Rts, 95)
}

// Measure runs op exactly repetitions times, one after the other, and
// returns the mean wall-clock time of a call in seconds. Every repetition
// counts: nothing is discarded as warm-up. The first failing call aborts the
// measurement.
func Measure(ctx context.Context, op Operation, repetitions int) (*Metric, error) {
	if repetitions <= 0 {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidRepetitions,
			fmt.Sprintf("repetitions must be positive, got %d", repetitions))
	}

	metric := &Metric{Rts: make([]float64, 0, repetitions)}

	for i := 0; i < repetitions; i++ {
		txStart := time.Now()
		err := op.Run(ctx)
		rt := time.Since(txStart).Seconds()

		if err != nil {
			zlog.Debug().Str("operation", op.Name).Int("repetition", i).Float64("rt", rt).Err(err).Msg("aborted")
			return nil, wrapOperationError(op.Name, i, err)
		}
		zlog.Debug().Str("operation", op.Name).Int("repetition", i).Float64("rt", rt).Msg("completed")

		metric.CompleteCount++
		metric.Rts = append(metric.Rts, rt)
		metric.TotalRt += rt
	}

	metric.Mean = metric.TotalRt / float64(repetitions)
	return metric, nil
}

// Errors that already carry a category keep it; anything else becomes a
// backend failure of the query.
func wrapOperationError(name string, repetition int, err error) error {
	if benchErrors.GetCategory(err) != "" {
		return fmt.Errorf("%s (repetition %d): %w", name, repetition, err)
	}
	return benchErrors.NewQueryError(benchErrors.CodeBackendFailure,
		fmt.Sprintf("%s failed at repetition %d", name, repetition), err)
}
