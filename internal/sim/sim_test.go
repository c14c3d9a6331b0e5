package sim

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/playmatatu/billiards/internal/game"
)

func TestRunBreaksIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Runs = 6
	opts.Seed = 42
	opts.Workers = 1

	a, err := RunBreaks(game.DefaultCatalog(), game.TableStandard, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.Workers = 3
	b, err := RunBreaks(game.DefaultCatalog(), game.TableStandard, opts)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Errorf("run %d differs between worker counts:\n%+v\n%+v", i, a[i], b[i])
		}
		if a[i].Run != i || a[i].Table != "standard" {
			t.Errorf("run %d labelled %+v", i, a[i])
		}
		if a[i].Power != 25 {
			t.Errorf("run %d power %.2f, want a full-power break", i, a[i].Power)
		}
		if a[i].Collisions == 0 {
			t.Errorf("run %d never hit the rack", i)
		}
	}
}

func TestRunBreaksEveryTable(t *testing.T) {
	for _, v := range game.Variants {
		t.Run(string(v), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Runs = 2
			res, err := RunBreaks(game.DefaultCatalog(), v, opts)
			if err != nil {
				t.Fatal(err)
			}
			for _, r := range res {
				if !r.Settled {
					t.Errorf("break %d did not settle in %d ticks", r.Run, opts.MaxTicks)
				}
				if r.Pocketed != len(strings.Fields(r.PocketedIDs)) {
					t.Errorf("pocketed %d but ids %q", r.Pocketed, r.PocketedIDs)
				}
			}
		})
	}
}

func TestRunBreaksRejectsBadInput(t *testing.T) {
	if _, err := RunBreaks(game.DefaultCatalog(), game.TableStandard, Options{}); err == nil {
		t.Error("zero runs should fail")
	}
	opts := DefaultOptions()
	if _, err := RunBreaks(game.DefaultCatalog(), "oval", opts); err == nil {
		t.Error("unknown table should fail")
	}
	opts.DragDistance = 20
	if _, err := RunBreaks(game.DefaultCatalog(), game.TableStandard, opts); err == nil {
		t.Error("a drag inside the dead zone never fires")
	}
}

func TestScratchCountsWhenBreakDoesNotSettle(t *testing.T) {
	s, err := game.NewSession(game.DefaultCatalog(), game.TableStandard, game.ModePractice)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.StartGame(game.ModePractice); err != nil {
		t.Fatal(err)
	}
	cue := s.Balls.CueBall()
	s.StartShot(cue.Position)
	s.UpdateShot(cue.Position.Minus(game.NewVec2(200, 0)))
	if _, fired := s.ReleaseShot(); !fired {
		t.Fatal("shot did not fire")
	}

	// drop the cue ball in a pocket while the rack keeps rolling
	cue.Position = s.Geometry().Pockets()[0].Position
	cue.Velocity = game.Vec2{}
	s.Balls.Find(1).Velocity = game.NewVec2(15, 3)

	var res BreakResult
	maxTicks := game.PocketDuration + 2
	playOut(s, &res, maxTicks)

	if res.Settled {
		t.Fatal("the rack should still be moving")
	}
	if !res.CueScratched {
		t.Error("the lost cue ball should count as a scratch")
	}
	if res.Ticks != maxTicks {
		t.Errorf("ticks = %d, want %d", res.Ticks, maxTicks)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	results := []BreakResult{
		{Run: 0, Table: "donut", Pocketed: 2, PocketedIDs: "3 9", Settled: true, Ticks: 400},
		{Run: 1, Table: "donut", CueScratched: true, Settled: true, Ticks: 350},
	}
	if err := WriteCSV(&buf, results); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run,table,angle,power,pocketed_ids,pocketed") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "3 9") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestSummarize(t *testing.T) {
	results := []BreakResult{
		{Pocketed: 1, Ticks: 300, Settled: true},
		{Pocketed: 2, Ticks: 400, Settled: true, CueScratched: true},
		{Pocketed: 6, Ticks: 500, Settled: true},
		{Pocketed: 3, Ticks: 3600},
	}
	s := Summarize(results)

	if s.Runs != 4 || s.Unsettled != 1 || s.MaxPocketed != 6 {
		t.Errorf("counts: %+v", s)
	}
	if s.MeanPocketed != 3 {
		t.Errorf("mean pocketed = %v, want 3", s.MeanPocketed)
	}
	// sample standard deviation of 1,2,6,3
	if math.Abs(s.StdDevPocketed-math.Sqrt(14.0/3)) > 1e-9 {
		t.Errorf("stddev = %v", s.StdDevPocketed)
	}
	if s.MeanTicks != 400 || s.MedianTicks != 400 {
		t.Errorf("ticks: mean %v median %v", s.MeanTicks, s.MedianTicks)
	}
	if s.ScratchRate != 0.25 {
		t.Errorf("scratch rate = %v", s.ScratchRate)
	}

	if empty := Summarize(nil); empty.Runs != 0 || empty.MeanPocketed != 0 {
		t.Errorf("empty summary %+v", empty)
	}
	if one := Summarize(results[:1]); one.StdDevPocketed != 0 {
		t.Errorf("single run stddev = %v", one.StdDevPocketed)
	}
}
