package batch

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/philtomson/hotwright/internal/cache"
	"github.com/philtomson/hotwright/internal/session"
)

const sampleSource = `
bool LED1 = false;
bool BUTTON;

void main() {
	while (1) {
		if (BUTTON) {
			LED1 = true;
		}
	}
}
`

const brokenSource = `
bool LED1 = false;

void main() {
	while (1) {
		LED1 = GHOST;
	}
}
`

func newTestPool(workers int) *Pool {
	sess := session.New(zap.NewNop(), nil)
	return NewPool(workers, sess, cache.New())
}

func TestPoolRunCompilesEveryJob(t *testing.T) {
	p := newTestPool(2)
	jobs := []Job{
		{Path: "a.hw", Source: sampleSource, OutBase: "a"},
		{Path: "b.hw", Source: sampleSource, OutBase: "b"},
	}
	p.Run(jobs)

	compiled, cached, failed := p.Stats()
	if compiled != 2 || cached != 0 || failed != 0 {
		t.Errorf("got compiled=%d cached=%d failed=%d, want 2/0/0", compiled, cached, failed)
	}
	if got := len(p.Results.Outcomes()); got != 2 {
		t.Errorf("got %d outcomes, want 2", got)
	}
}

func TestPoolCachesRepeatedSource(t *testing.T) {
	p := newTestPool(1)
	jobs := []Job{
		{Path: "a.hw", Source: sampleSource, OutBase: "a"},
		{Path: "b.hw", Source: sampleSource, OutBase: "b"}, // identical source, should hit cache
	}
	p.Run(jobs)

	compiled, cached, failed := p.Stats()
	if compiled != 1 || cached != 1 || failed != 0 {
		t.Errorf("got compiled=%d cached=%d failed=%d, want 1/1/0", compiled, cached, failed)
	}

	for _, o := range p.Results.Outcomes() {
		if o.Cached {
			if o.Artifact == nil || o.Artifact.Images == nil {
				t.Fatal("a cache-hit outcome should still carry packed Images")
			}
			if len(o.Artifact.Images.Words) == 0 {
				t.Error("cache-hit Images has no Words")
			}
		}
	}
}

func TestPoolRecordsFailures(t *testing.T) {
	p := newTestPool(1)
	p.Run([]Job{{Path: "bad.hw", Source: brokenSource, OutBase: "bad"}})

	compiled, cached, failed := p.Stats()
	if compiled != 0 || cached != 0 || failed != 1 {
		t.Errorf("got compiled=%d cached=%d failed=%d, want 0/0/1", compiled, cached, failed)
	}
	outcomes := p.Results.Outcomes()
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatal("expected the single outcome to carry a non-nil error")
	}
}

func TestNewPoolDefaultsWorkerCount(t *testing.T) {
	p := NewPool(0, session.New(zap.NewNop(), nil), nil)
	if p.NumWorkers <= 0 {
		t.Errorf("NumWorkers = %d, want a positive default", p.NumWorkers)
	}
	if p.Cache == nil {
		t.Error("expected a nil cache argument to be replaced with an empty Cache")
	}
}

func TestTableAddIsConcurrencySafe(t *testing.T) {
	table := &Table{}
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			table.Add(Outcome{Job: Job{Path: fmt.Sprintf("job-%d", i)}})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if got := len(table.Outcomes()); got != 8 {
		t.Errorf("got %d outcomes, want 8", got)
	}
}
