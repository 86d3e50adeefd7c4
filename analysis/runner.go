package analysis

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/histos"
	"github.com/decibelcooper/eutel/lcioio"
)

type job struct {
	evt Event
	err error
}

type result struct {
	evt      Event
	outcomes []Outcome
	errs     []error
	skipped  bool
	failed   bool
}

// Runner drives processors over a source with a pool of workers.
type Runner struct {
	Processors []Processor
	Workers    int
	Skip       int
	MaxEvents  int
	Verbosity  int
	Logger     Logger

	Histos  *histos.Registry
	Summary *Summary
}

// NewRunner books the histograms of every processor.
func NewRunner(ctx Context, procs []Processor) *Runner {
	r := &Runner{
		Processors: procs,
		Workers:    ctx.Config.NumWorkers,
		Skip:       ctx.Config.Skip,
		MaxEvents:  ctx.Config.MaxEvents,
		Verbosity:  ctx.Config.Verbosity,
		Logger:     ctx.Logger,
		Histos:     histos.NewRegistry(),
		Summary:    NewSummary(ctx.Geo.NPlanes()),
	}
	for _, p := range procs {
		p.Book(r.Histos)
	}
	return r
}

// Run processes events until the source is exhausted, MaxEvents events were
// processed or ctx is done.
func (r *Runner) Run(ctx context.Context, src Source) error {
	workers := max(r.Workers, 1)
	jobs := make(chan job, workers)
	results := make(chan result, 10*workers)

	var srcErr error
	go func() {
		defer close(jobs)
		srcErr = r.feed(ctx, src, jobs)
	}()

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				results <- r.process(id, j)
			}
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		r.collect(res)
	}
	// the feeder has returned once jobs is closed and drained
	if srcErr != nil {
		return srcErr
	}
	return ctx.Err()
}

func (r *Runner) feed(ctx context.Context, src Source, jobs chan<- job) error {
	read, sent := 0, 0
	for r.MaxEvents <= 0 || sent < r.MaxEvents {
		evt, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil && !errors.Is(err, lcioio.ErrCollectionNotFound) {
			return err
		}
		read++
		if read <= r.Skip {
			continue
		}
		select {
		case jobs <- job{evt: evt, err: err}:
			sent++
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// process runs every processor on one event. A panic discards every outcome
// of the event, the other events are unaffected.
func (r *Runner) process(worker int, j job) (res result) {
	res.evt = j.evt
	if j.err != nil {
		res.skipped = true
		res.errs = []error{j.err}
		return res
	}
	defer func() {
		if p := recover(); p != nil {
			res.outcomes = nil
			res.failed = true
			res.errs = append(res.errs, fmt.Errorf("worker %d recovered from panic on event %d: %v", worker, j.evt.Number, p))
		}
	}()
	for _, p := range r.Processors {
		out, err := p.Process(j.evt)
		if err != nil {
			res.errs = append(res.errs, errors.Wrap(err, p.Name()))
			continue
		}
		if out != nil {
			res.outcomes = append(res.outcomes, out)
		}
	}
	return res
}

func (r *Runner) collect(res result) {
	sum := r.Summary
	if res.skipped {
		sum.Skipped++
		if r.Verbosity > 0 {
			r.Logger.Info(fmt.Sprintf("skipping event %d: %v", res.evt.Number, res.errs[0]), "runner")
		}
		return
	}
	if res.failed {
		sum.Skipped++
		r.logErrors(res)
		return
	}
	sum.Events++
	if r.Verbosity > 1 {
		r.Logger.Info(fmt.Sprintf("processed event %d", res.evt.Number), "runner")
	}
	for _, out := range res.outcomes {
		out.Fill(r.Histos, sum)
	}
	r.logErrors(res)
}

func (r *Runner) logErrors(res result) {
	for _, err := range res.errs {
		r.Summary.Errors++
		r.Logger.Error(fmt.Sprintf("event %d: %v", res.evt.Number, err))
	}
}

// End lets every processor finish and logs the summary.
func (r *Runner) End() {
	for _, p := range r.Processors {
		p.End(r.Histos, r.Summary)
	}
	r.Summary.Log(r.Logger)
	for name, n := range r.Histos.Missing() {
		r.Logger.Error(fmt.Sprintf("%d fills of unbooked histogram %q", n, name))
	}
}
