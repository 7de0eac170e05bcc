package rehydrate

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const logModule = "Rehydrator"

// SessionStore is the process-wide conversation id -> session map.
type SessionStore interface {
	Get(convID int64) (llm.Session, bool)
	Save(convID int64, session llm.Session)
	Delete(convID int64) bool
}

// DocumentSource yields the current grounding document set.
type DocumentSource interface {
	Documents() []llm.Part
}

// EventSink is told about every session built by reconciliation.
type EventSink interface {
	PublishSessionRehydrated(ctx context.Context, convID int64, seedTurns int, grounded bool)
}

type Config struct {
	SystemInstruction string
}

// Rehydrator returns the live session for a conversation, rebuilding it from
// caller-supplied history when it is not resident. Concurrent misses for the
// same id are coalesced so only one session is ever constructed.
type Rehydrator struct {
	store      SessionStore
	client     llm.ChatClient
	normalizer *history.Normalizer
	docs       DocumentSource
	events     EventSink
	logger     logger.ILogger
	cfg        Config
	group      singleflight.Group
	tracer     trace.Tracer

	// Forget bumps the generation of an id with a build in flight, so the
	// build does not resurrect a deleted session.
	mu       sync.Mutex
	inflight map[int64]int
	gens     map[int64]uint64
}

func New(
	store SessionStore,
	client llm.ChatClient,
	normalizer *history.Normalizer,
	docs DocumentSource,
	events EventSink,
	log logger.ILogger,
	cfg Config,
) *Rehydrator {
	return &Rehydrator{
		store:      store,
		client:     client,
		normalizer: normalizer,
		docs:       docs,
		events:     events,
		logger:     log,
		cfg:        cfg,
		tracer:     otel.Tracer("knowledge-chat-be/rehydrate"),
		inflight:   make(map[int64]int),
		gens:       make(map[int64]uint64),
	}
}

type result struct {
	session llm.Session
	created bool
}

// Obtain returns the cached session for convID, ignoring entries, or builds
// one seeded from entries. created reports whether this call constructed the
// session; callers coalesced onto another build get false.
func (r *Rehydrator) Obtain(ctx context.Context, convID int64, entries []history.Entry) (session llm.Session, created bool, err error) {
	if s, found := r.store.Get(convID); found {
		r.logger.Debug(logModule, "Found chat session in memory", map[string]interface{}{"conv_id": convID})
		return s, false, nil
	}

	// Construction is not cancelled by the caller once it has started.
	flightCtx := context.WithoutCancel(ctx)
	leader := false
	v, err, _ := r.group.Do(strconv.FormatInt(convID, 10), func() (interface{}, error) {
		leader = true
		if s, found := r.store.Get(convID); found {
			return result{session: s}, nil
		}
		s, err := r.rebuild(flightCtx, convID, entries)
		if err != nil {
			return nil, err
		}
		return result{session: s, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(result)
	return res.session, res.created && leader, nil
}

// Peek returns the resident session without reconciling.
func (r *Rehydrator) Peek(convID int64) (llm.Session, bool) {
	return r.store.Get(convID)
}

// Forget drops the resident session; the next Obtain rebuilds it. A build in
// flight for convID finishes without caching its session, and counts as
// present.
func (r *Rehydrator) Forget(convID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.inflight[convID] > 0
	if pending {
		r.gens[convID]++
	}
	return r.store.Delete(convID) || pending
}

func (r *Rehydrator) begin(convID int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[convID]++
	return r.gens[convID]
}

func (r *Rehydrator) end(convID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[convID]--
	if r.inflight[convID] <= 0 {
		delete(r.inflight, convID)
		delete(r.gens, convID)
	}
}

// saveUnlessForgotten caches session unless Forget ran since gen was taken.
func (r *Rehydrator) saveUnlessForgotten(convID int64, gen uint64, session llm.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[convID] != gen {
		return false
	}
	r.store.Save(convID, session)
	return true
}

func (r *Rehydrator) rebuild(ctx context.Context, convID int64, entries []history.Entry) (llm.Session, error) {
	ctx, span := r.tracer.Start(ctx, "session.rehydrate", trace.WithAttributes(
		attribute.Int64("conv_id", convID),
		attribute.Int("raw_entries", len(entries)),
	))
	defer span.End()

	gen := r.begin(convID)
	defer r.end(convID)

	r.logger.Info(logModule, "Chat session not in memory, recreating", map[string]interface{}{
		"conv_id":     convID,
		"raw_entries": len(entries),
	})

	seed := r.normalizer.Reconcile(ctx, entries)
	span.SetAttributes(attribute.Int("seed_turns", len(seed)))

	session, err := r.client.CreateSession(ctx, r.cfg.SystemInstruction, seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session")
		r.logger.Error(logModule, "Error creating chat session", map[string]interface{}{
			"conv_id": convID,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("create session %d: %w", convID, err)
	}

	if !r.saveUnlessForgotten(convID, gen, session) {
		span.SetAttributes(attribute.Bool("forgotten", true))
		r.logger.Info(logModule, "Chat session deleted while being created, not caching", map[string]interface{}{"conv_id": convID})
		return session, nil
	}

	grounded := r.ground(ctx, convID, session)
	span.SetAttributes(attribute.Bool("grounded", grounded))

	r.logger.Info(logModule, "Chat session created", map[string]interface{}{
		"conv_id":    convID,
		"seed_turns": len(seed),
		"grounded":   grounded,
	})
	if r.events != nil {
		r.events.PublishSessionRehydrated(ctx, convID, len(seed), grounded)
	}
	return session, nil
}

// ground sends the current document set as one turn. Failure leaves the
// session usable, just ungrounded.
func (r *Rehydrator) ground(ctx context.Context, convID int64, session llm.Session) bool {
	if r.docs == nil {
		return false
	}
	docs := r.docs.Documents()
	if len(docs) == 0 {
		r.logger.Info(logModule, "No knowledge contents available for initialization", map[string]interface{}{"conv_id": convID})
		return false
	}

	if _, err := session.Send(ctx, docs); err != nil {
		r.logger.Warn(logModule, "Could not initialize chat with documents", map[string]interface{}{
			"conv_id": convID,
			"error":   err.Error(),
		})
		return false
	}
	return true
}
