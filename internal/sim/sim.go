// Package sim runs headless break shots on the game tables and reports on
// them.
package sim

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
	"gonum.org/v1/gonum/stat"
)

// Options controls a batch of breaks.
type Options struct {
	Runs int
	Seed int64
	// MaxTicks bounds a single break; a break still moving after it is
	// reported as unsettled.
	MaxTicks int
	// AngleJitter is the largest random deviation, in radians, from a
	// straight shot at the rack apex.
	AngleJitter float64
	// DragDistance is how far the cue is pulled back, in table units.
	DragDistance float64
	Workers      int
}

// DefaultOptions is a full-power break with a little aim noise.
func DefaultOptions() Options {
	return Options{
		Runs:         100,
		Seed:         1,
		MaxTicks:     60 * 60,
		AngleJitter:  0.02,
		DragDistance: 250,
	}
}

// BreakResult is one simulated break.
type BreakResult struct {
	Run          int     `csv:"run" json:"run"`
	Table        string  `csv:"table" json:"table"`
	Angle        float64 `csv:"angle" json:"angle"`
	Power        float64 `csv:"power" json:"power"`
	PocketedIDs  string  `csv:"pocketed_ids" json:"pocketed_ids"`
	Pocketed     int     `csv:"pocketed" json:"pocketed"`
	CueScratched bool    `csv:"cue_scratched" json:"cue_scratched"`
	Collisions   int     `csv:"collisions" json:"collisions"`
	Ticks        int     `csv:"ticks" json:"ticks"`
	Settled      bool    `csv:"settled" json:"settled"`
}

// RunBreaks plays opts.Runs breaks on variant. Run i uses seed opts.Seed+i,
// so results do not depend on the worker count.
func RunBreaks(catalog *game.Catalog, variant game.TableVariant, opts Options) ([]BreakResult, error) {
	if opts.Runs <= 0 {
		return nil, errors.New("runs must be positive")
	}
	if opts.MaxTicks <= 0 {
		opts.MaxTicks = DefaultOptions().MaxTicks
	}
	if opts.DragDistance <= 0 {
		opts.DragDistance = DefaultOptions().DragDistance
	}
	if _, err := catalog.Geometry(variant); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > opts.Runs {
		workers = opts.Runs
	}

	logger := logging.For("sim")
	logger.Debug("running breaks", "table", variant, "runs", opts.Runs, "workers", workers)

	results := make([]BreakResult, opts.Runs)
	errs := make([]error, opts.Runs)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = runBreak(catalog, variant, opts, i)
			}
		}()
	}
	for i := 0; i < opts.Runs; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

func runBreak(catalog *game.Catalog, variant game.TableVariant, opts Options, run int) (BreakResult, error) {
	rng := rand.New(rand.NewSource(opts.Seed + int64(run)))

	s, err := game.NewSession(catalog, variant, game.ModePractice)
	if err != nil {
		return BreakResult{}, err
	}
	if err := s.StartGame(game.ModePractice); err != nil {
		return BreakResult{}, err
	}

	cue := s.Balls.CueBall()
	apex := s.Balls.Find(1)
	if cue == nil || apex == nil {
		return BreakResult{}, fmt.Errorf("run %d: rack has no cue ball or apex", run)
	}

	angle := apex.Position.Minus(cue.Position).Angle()
	if opts.AngleJitter > 0 {
		angle += (rng.Float64()*2 - 1) * opts.AngleJitter
	}
	// the shot travels away from the drag
	pull := cue.Position.Minus(game.FromAngle(angle, opts.DragDistance))

	s.StartShot(cue.Position)
	s.UpdateShot(pull)
	info, fired := s.ReleaseShot()
	if !fired {
		return BreakResult{}, fmt.Errorf("run %d: drag of %.1f did not fire", run, opts.DragDistance)
	}

	res := BreakResult{
		Run:   run,
		Table: string(variant),
		Angle: info.Angle,
		Power: info.Power,
	}
	playOut(s, &res, opts.MaxTicks)
	return res, nil
}

// playOut ticks s until the shot settles or maxTicks run out. A cue ball
// lost along the way counts as a scratch whether or not the table settles.
func playOut(s *game.Session, res *BreakResult, maxTicks int) {
	for tick := 1; tick <= maxTicks; tick++ {
		tr := s.Tick()
		res.Collisions += countBallHits(tr.Events)
		if tr.CueScratched {
			res.CueScratched = true
		}
		if tr.Settled != nil {
			res.Settled = true
			res.Ticks = tr.Settled.Ticks
			res.Pocketed = len(tr.Settled.Pocketed)
			res.PocketedIDs = joinIDs(tr.Settled.Pocketed)
			return
		}
	}

	res.Ticks = maxTicks
	res.Pocketed = len(s.Pocketed)
	res.PocketedIDs = joinIDs(s.Pocketed)
}

func countBallHits(events []game.CollisionEvent) int {
	n := 0
	for _, ev := range events {
		if ev.Type == game.EventBall {
			n++
		}
	}
	return n
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}

// WriteCSV writes one row per break with a header line.
func WriteCSV(w io.Writer, results []BreakResult) error {
	if err := gocsv.Marshal(results, w); err != nil {
		return fmt.Errorf("writing break results: %w", err)
	}
	return nil
}

// Summary aggregates a batch of breaks.
type Summary struct {
	Runs           int     `json:"runs"`
	Unsettled      int     `json:"unsettled"`
	MeanPocketed   float64 `json:"mean_pocketed"`
	StdDevPocketed float64 `json:"stddev_pocketed"`
	MedianPocketed float64 `json:"median_pocketed"`
	MaxPocketed    int     `json:"max_pocketed"`
	MeanTicks      float64 `json:"mean_ticks"`
	MedianTicks    float64 `json:"median_ticks"`
	ScratchRate    float64 `json:"scratch_rate"`
}

// Summarize computes batch statistics. Tick statistics only cover breaks
// that settled.
func Summarize(results []BreakResult) Summary {
	sum := Summary{Runs: len(results)}
	if len(results) == 0 {
		return sum
	}

	pocketed := make([]float64, 0, len(results))
	ticks := make([]float64, 0, len(results))
	scratches := 0
	for _, r := range results {
		pocketed = append(pocketed, float64(r.Pocketed))
		if r.Pocketed > sum.MaxPocketed {
			sum.MaxPocketed = r.Pocketed
		}
		if r.CueScratched {
			scratches++
		}
		if !r.Settled {
			sum.Unsettled++
			continue
		}
		ticks = append(ticks, float64(r.Ticks))
	}

	sum.MeanPocketed, sum.StdDevPocketed = stat.MeanStdDev(pocketed, nil)
	if math.IsNaN(sum.StdDevPocketed) {
		sum.StdDevPocketed = 0
	}
	sum.MedianPocketed = median(pocketed)
	if len(ticks) > 0 {
		sum.MeanTicks = stat.Mean(ticks, nil)
		sum.MedianTicks = median(ticks)
	}
	sum.ScratchRate = float64(scratches) / float64(len(results))
	return sum
}

func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
