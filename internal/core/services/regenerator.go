package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// RegeneratorConfig configures a Regenerator.
type RegeneratorConfig struct {
	// Workers is the number of documents processed in parallel. Default 2.
	Workers int

	// OnError is called after a change fails to process. Optional.
	OnError func(change domain.DocumentChange, err error)
}

// Regenerator keeps embeddings in step with vault changes in the background.
// HandleChange only records work; workers started by Start perform it.
// Several changes to one document before a worker picks it up collapse
// into the latest one.
type Regenerator struct {
	embeddings driving.EmbeddingService
	config     RegeneratorConfig

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string]domain.DocumentChange
	order   []string
	active  map[string]struct{}
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	signal chan struct{}
}

// NewRegenerator creates a regenerator backed by the embedding service.
func NewRegenerator(embeddings driving.EmbeddingService, config RegeneratorConfig) *Regenerator {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	r := &Regenerator{
		embeddings: embeddings,
		config:     config,
		pending:    make(map[string]domain.DocumentChange),
		active:     make(map[string]struct{}),
		signal:     make(chan struct{}, 1),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// HandleChange queues a change notification. It never blocks and never fails.
// A rename is queued as a deletion of the old id and a modification of the new.
func (r *Regenerator) HandleChange(change domain.DocumentChange) {
	r.mu.Lock()
	switch change.Kind {
	case domain.ChangeRenamed:
		if change.OldID != "" {
			r.enqueue(domain.DocumentChange{Kind: domain.ChangeDeleted, DocumentID: change.OldID})
		}
		r.enqueue(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: change.DocumentID})
	case domain.ChangeModified, domain.ChangeDeleted:
		r.enqueue(change)
	default:
		logger.Warn("ignoring change of unknown kind %q for %s", change.Kind, change.DocumentID)
	}
	r.mu.Unlock()

	r.wake()
}

// enqueue records change as the latest pending work for its document.
// Caller must hold mu.
func (r *Regenerator) enqueue(change domain.DocumentChange) {
	if change.DocumentID == "" {
		return
	}
	if _, ok := r.pending[change.DocumentID]; !ok {
		r.order = append(r.order, change.DocumentID)
	}
	r.pending[change.DocumentID] = change
}

func (r *Regenerator) wake() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of documents waiting to be processed.
func (r *Regenerator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start launches the workers and returns immediately.
func (r *Regenerator) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	for range r.config.Workers {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx, stopCh)
		}()
	}
	r.wake()
}

// Stop halts the workers after their current document. Queued work is kept.
func (r *Regenerator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

// Wait blocks until no work is pending or in progress. The workers must
// be running for queued work to drain.
func (r *Regenerator) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.pending) > 0 || len(r.active) > 0 {
		r.idle.Wait()
	}
}

func (r *Regenerator) work(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-r.signal:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			change, ok := r.next()
			if !ok {
				break
			}
			// Let another worker pick up the rest of the queue.
			r.wake()
			r.process(ctx, change)
			r.finish(change.DocumentID)
		}
	}
}

// next pops the oldest pending change whose document is not being processed.
func (r *Regenerator) next() (domain.DocumentChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range r.order {
		if _, busy := r.active[id]; busy {
			continue
		}
		change := r.pending[id]
		delete(r.pending, id)
		r.order = slices.Delete(r.order, i, i+1)
		r.active[id] = struct{}{}
		return change, true
	}
	return domain.DocumentChange{}, false
}

func (r *Regenerator) finish(id string) {
	r.mu.Lock()
	delete(r.active, id)
	_, more := r.pending[id]
	r.idle.Broadcast()
	r.mu.Unlock()

	if more {
		r.wake()
	}
}

func (r *Regenerator) process(ctx context.Context, change domain.DocumentChange) {
	var err error
	switch change.Kind {
	case domain.ChangeDeleted:
		err = r.embeddings.InvalidateDocument(ctx, change.DocumentID)
	default:
		_, err = r.embeddings.RegenerateDocument(ctx, change.DocumentID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// Removed before we got to it.
			err = r.embeddings.InvalidateDocument(ctx, change.DocumentID)
		}
	}

	if err != nil {
		logger.Warn("background %s of %s failed: %v", change.Kind, change.DocumentID, err)
		if r.config.OnError != nil {
			r.config.OnError(change, err)
		}
		return
	}
	logger.Debug("processed %s change for %s", change.Kind, change.DocumentID)
}
