// Package uncertainty derives bootstrap confidence intervals for design
// quantiles.
package uncertainty

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/returnperiod"
)

// ErrInsufficientValidResamples is returned when the attempt cap is reached
// before enough resamples could be refitted.
var ErrInsufficientValidResamples = errors.New("uncertainty: insufficient valid resamples")

// InsufficientResamplesError reports how far the bootstrap got.
type InsufficientResamplesError struct {
	Target    int
	Successes int
	Attempts  int
}

func (e *InsufficientResamplesError) Error() string {
	return fmt.Sprintf("uncertainty: only %d of %d resamples refitted after %d attempts", e.Successes, e.Target, e.Attempts)
}

func (e *InsufficientResamplesError) Unwrap() error { return ErrInsufficientValidResamples }

const (
	DefaultSamples          = 200
	DefaultConfidence       = 0.95
	DefaultMaxAttemptFactor = 3
)

// Options controls the bootstrap. Zero values fall back to the defaults.
type Options struct {
	Samples          int
	Confidence       float64
	Seed             uint64
	MaxAttemptFactor int
	Workers          int
}

func (o Options) withDefaults() Options {
	if o.Samples <= 0 {
		o.Samples = DefaultSamples
	}
	if !(o.Confidence > 0 && o.Confidence < 1) {
		o.Confidence = DefaultConfidence
	}
	if o.MaxAttemptFactor <= 0 {
		o.MaxAttemptFactor = DefaultMaxAttemptFactor
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Interval is a percentile confidence interval for one return period.
type Interval struct {
	ReturnPeriod int     `json:"T_years"`
	Lower        float64 `json:"lower"`
	Upper        float64 `json:"upper"`
}

// Result is the outcome of one bootstrap run over several return periods.
type Result struct {
	Family     distribution.Family `json:"distribution"`
	Confidence float64             `json:"confidence_level"`
	Samples    int                 `json:"samples"`
	Attempts   int                 `json:"attempts"`
	Seed       uint64              `json:"seed"`
	Intervals  []Interval          `json:"intervals"`
}

// Interval returns the interval for return period t.
func (r Result) Interval(t int) (Interval, bool) {
	for _, iv := range r.Intervals {
		if iv.ReturnPeriod == t {
			return iv, true
		}
	}
	return Interval{}, false
}

type attempt struct {
	ok bool
	qs []float64
}

// Bootstrap resamples values with replacement, refits family on each resample
// and collects the design quantile for every return period. Resamples whose
// refit fails are discarded; the run stops once opts.Samples refits succeeded
// or Samples*MaxAttemptFactor attempts were made.
//
// Attempt i draws from its own generator seeded by (Seed, i) and successes are
// taken in attempt order, so the result depends only on the inputs and the
// seed, never on worker scheduling.
func Bootstrap(ctx context.Context, values []float64, family distribution.Family, periods []int, opts Options) (Result, error) {
	opts = opts.withDefaults()
	for _, t := range periods {
		if err := returnperiod.Validate(t); err != nil {
			return Result{}, err
		}
	}
	if len(values) < 2 {
		return Result{}, &InsufficientResamplesError{Target: opts.Samples}
	}

	target := opts.Samples
	maxAttempts := target * opts.MaxAttemptFactor
	collected := make([][]float64, len(periods))
	successes, next := 0, 0

	for successes < target && next < maxAttempts {
		batch := min(target-successes, maxAttempts-next)
		results := make([]attempt, batch)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := 0; i < batch; i++ {
			idx := next + i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[idx-next] = run(values, family, periods, opts.Seed, idx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, fmt.Errorf("uncertainty: bootstrap interrupted: %w", err)
		}

		for _, a := range results {
			next++
			if !a.ok {
				continue
			}
			for j, q := range a.qs {
				collected[j] = append(collected[j], q)
			}
			successes++
			if successes == target {
				break
			}
		}
	}

	if successes < target {
		return Result{}, &InsufficientResamplesError{Target: target, Successes: successes, Attempts: next}
	}

	res := Result{
		Family:     family,
		Confidence: opts.Confidence,
		Samples:    successes,
		Attempts:   next,
		Seed:       opts.Seed,
		Intervals:  make([]Interval, len(periods)),
	}
	tail := (1 - opts.Confidence) / 2
	for j, t := range periods {
		qs := collected[j]
		sort.Float64s(qs)
		res.Intervals[j] = Interval{
			ReturnPeriod: t,
			Lower:        stat.Quantile(tail, stat.LinInterp, qs, nil),
			Upper:        stat.Quantile(1-tail, stat.LinInterp, qs, nil),
		}
	}
	return res, nil
}

// BootstrapCI is the single return period form of Bootstrap.
func BootstrapCI(ctx context.Context, values []float64, family distribution.Family, t int, opts Options) (float64, float64, error) {
	res, err := Bootstrap(ctx, values, family, []int{t}, opts)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return res.Intervals[0].Lower, res.Intervals[0].Upper, nil
}

func run(values []float64, family distribution.Family, periods []int, seed uint64, idx int) attempt {
	rng := rand.New(rand.NewPCG(seed, uint64(idx)))
	resample := make([]float64, len(values))
	for i := range resample {
		resample[i] = values[rng.IntN(len(values))]
	}

	d, err := distribution.Estimate(resample, family)
	if err != nil {
		return attempt{}
	}
	qs := make([]float64, len(periods))
	for j, t := range periods {
		q, err := returnperiod.Quantile(d, t)
		if err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
			return attempt{}
		}
		qs[j] = q
	}
	return attempt{ok: true, qs: qs}
}
