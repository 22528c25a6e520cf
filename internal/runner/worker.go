package runner

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/logsmith/logsmith/internal/metrics"
)

// runWorker drives one pattern from admission to a terminal state. The
// sink is scoped to the run and released on every exit path; any render
// or write failure is fatal to this worker only, with the partial event
// count preserved in the result.
func runWorker(ctx context.Context, opt Options, p Pattern) PatternResult {
	res := PatternResult{Name: p.Name}

	var tracker *metrics.Tracker
	if opt.Collector != nil {
		tracker = opt.Collector.Tracker(p.Name)
	}

	out, err := opt.SinkFactory(p.Path)
	if err != nil {
		log.WithField("pattern", p.Name).Errorf("opening sink: %v", err)
		res.Reason = ReasonError
		res.Err = err
		return res
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.WithField("pattern", p.Name).Warnf("closing sink: %v", cerr)
		}
	}()

	if tracker != nil {
		tracker.SetRunning(true)
		defer tracker.SetRunning(false)
	}
	log.WithField("pattern", p.Name).Debugf("worker running at %.2f events/s", p.EffectiveEPS())

	pc := newPacer(opt, p)
	for {
		ok, err := pc.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Cooperative cancellation, never a failure.
				res.Reason = ReasonCancelled
				return res
			}
			res.Reason = ReasonError
			res.Err = err
			return res
		}
		if !ok {
			res.Reason = ReasonTimeExpired
			return res
		}

		line, err := p.Source.Next()
		if err != nil {
			log.WithField("pattern", p.Name).Errorf("rendering event: %v", err)
			res.Reason = ReasonError
			res.Err = err
			return res
		}

		started := time.Now()
		werr := out.WriteLine(line)
		if opt.Collector != nil {
			opt.Collector.RecordWrite(time.Since(started), werr)
		}
		if werr != nil {
			log.WithField("pattern", p.Name).Errorf("appending event: %v", werr)
			res.Reason = ReasonError
			res.Err = werr
			return res
		}
		res.Events++
		if tracker != nil {
			tracker.Add(1)
		}
	}
}
