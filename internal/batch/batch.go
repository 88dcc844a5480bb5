// Package batch compiles many source files concurrently: a fixed set of
// goroutines drains a channel of work items, atomic counters track
// progress, and a mutex-guarded table collects results in whatever order
// they complete.
package batch

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/philtomson/hotwright/internal/cache"
	"github.com/philtomson/hotwright/internal/emit"
	"github.com/philtomson/hotwright/internal/session"
)

// Job is one file to compile.
type Job struct {
	Path    string
	Source  string
	OutBase string
}

// Outcome is one job's result.
type Outcome struct {
	Job      Job
	Artifact *session.Artifact
	Err      error
	Cached   bool
}

// Table collects Outcomes from concurrent workers.
type Table struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// Add records one outcome.
func (t *Table) Add(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, o)
}

// Outcomes returns a copy of every recorded outcome.
func (t *Table) Outcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// Pool runs compilation jobs across a fixed number of workers.
type Pool struct {
	NumWorkers int
	Sess       *session.Session
	Cache      *cache.Cache
	Results    *Table

	compiled atomic.Int64
	cached   atomic.Int64
	failed   atomic.Int64
}

// NewPool creates a Pool. numWorkers <= 0 defaults to runtime.NumCPU().
func NewPool(numWorkers int, sess *session.Session, c *cache.Cache) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if c == nil {
		c = cache.New()
	}
	return &Pool{NumWorkers: numWorkers, Sess: sess, Cache: c, Results: &Table{}}
}

// Stats returns the running compiled/cached/failed counters.
func (p *Pool) Stats() (compiled, cached, failed int64) {
	return p.compiled.Load(), p.cached.Load(), p.failed.Load()
}

// Run compiles every job, fanning out across the worker pool, and blocks
// until all jobs have completed.
func (p *Pool) Run(jobs []Job) {
	ch := make(chan Job, len(jobs))
	for _, j := range jobs {
		ch <- j
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				p.processJob(j)
			}
		}()
	}
	wg.Wait()
}

func (p *Pool) processJob(j Job) {
	log := p.Sess.Log.With(zap.String("path", j.Path))
	hash := cache.HashSource(j.Source)

	if entry, ok := p.Cache.Lookup(hash); ok {
		log.Debug("cache hit")
		p.cached.Add(1)
		p.Results.Add(Outcome{Job: j, Cached: true, Artifact: artifactFromEntry(entry)})
		return
	}

	art, err := p.Sess.Compile(j.Source)
	if err != nil {
		log.Warn("compile failed", zap.Error(err))
		p.failed.Add(1)
		p.Results.Add(Outcome{Job: j, Err: err})
		return
	}

	p.Cache.Store(hash, cache.Entry{
		Words:       art.Images.Words,
		VarData:     art.Images.VarData,
		SwitchTable: art.Result.SwitchTable,
		InstrCount:  len(art.Result.Instructions),
		WordWidth:   art.Images.WordWidth,
		StateNames:  art.Images.StateNames,
		InputNames:  art.Images.InputNames,
	})
	p.compiled.Add(1)
	p.Results.Add(Outcome{Job: j, Artifact: art})
}

// artifactFromEntry reconstructs the minimal view of an Artifact a cache
// hit can offer: the packed images, enough for writeOutcome to emit the
// same .mem files a fresh compile would. Callers that need the full
// pipeline state (hardware context, engine program) must recompile; batch
// mode never re-simulates a cache hit.
func artifactFromEntry(e cache.Entry) *session.Artifact {
	return &session.Artifact{
		Images: &emit.Images{
			Words:       e.Words,
			VarData:     e.VarData,
			SwitchTable: e.SwitchTable,
			WordWidth:   e.WordWidth,
			StateNames:  e.StateNames,
			InputNames:  e.InputNames,
		},
	}
}
