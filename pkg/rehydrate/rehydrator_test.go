package rehydrate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/internal/repository/memory"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	seed    []llm.Turn
	sent    [][]llm.Part
	sendErr error
}

func (s *fakeSession) Send(ctx context.Context, parts []llm.Part, opts ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, parts)
	return "ok", nil
}

func (s *fakeSession) History() []llm.Turn { return llm.CloneTurns(s.seed) }

type fakeClient struct {
	created   atomic.Int32
	delay     time.Duration
	createErr error
	sendErr   error
	lastSeed  []llm.Turn
	mu        sync.Mutex
}

func (c *fakeClient) CreateSession(ctx context.Context, systemInstruction string, seed []llm.Turn) (llm.Session, error) {
	c.created.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.mu.Lock()
	c.lastSeed = seed
	c.mu.Unlock()
	return &fakeSession{seed: seed, sendErr: c.sendErr}, nil
}

func (c *fakeClient) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return "", nil
}

type staticDocs []llm.Part

func (d staticDocs) Documents() []llm.Part { return d }

type recordingSink struct {
	mu       sync.Mutex
	grounded []bool
}

func (r *recordingSink) PublishSessionRehydrated(ctx context.Context, convID int64, seedTurns int, grounded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grounded = append(r.grounded, grounded)
}

func newTestRehydrator(client llm.ChatClient, docs DocumentSource, sink EventSink) *Rehydrator {
	log := logger.NewNopLogger()
	return New(
		memory.NewSessionRepository(0),
		client,
		history.NewNormalizer(nil, log),
		docs,
		sink,
		log,
		Config{SystemInstruction: "be helpful"},
	)
}

func TestObtainCachesSession(t *testing.T) {
	client := &fakeClient{}
	r := newTestRehydrator(client, nil, nil)
	ctx := context.Background()

	first, created, err := r.Obtain(ctx, 7, []history.Entry{
		history.Structured("assistant", "hi"),
		history.Structured("user", "hello"),
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, client.lastSeed, 1)
	assert.Equal(t, llm.RoleUser, client.lastSeed[0].Role)

	// history is ignored while resident
	second, created, err := r.Obtain(ctx, 7, []history.Entry{history.Structured("user", "different")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, client.created.Load())
}

func TestForgetThenObtainRebuilds(t *testing.T) {
	client := &fakeClient{}
	r := newTestRehydrator(client, nil, nil)
	ctx := context.Background()

	first, _, err := r.Obtain(ctx, 1, nil)
	require.NoError(t, err)

	assert.True(t, r.Forget(1))
	assert.False(t, r.Forget(1))
	_, found := r.Peek(1)
	assert.False(t, found)

	second, created, err := r.Obtain(ctx, 1, []history.Entry{history.Structured("user", "again")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, client.created.Load())
}

func TestConcurrentMissesBuildOnce(t *testing.T) {
	client := &fakeClient{delay: 30 * time.Millisecond}
	r := newTestRehydrator(client, nil, nil)

	const callers = 8
	sessions := make([]llm.Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _, err := r.Obtain(context.Background(), 42, nil)
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, client.created.Load())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}

func TestConcurrentMissesReportCreatedOnce(t *testing.T) {
	client := &fakeClient{delay: 30 * time.Millisecond}
	r := newTestRehydrator(client, nil, nil)

	const callers = 6
	var createdCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := r.Obtain(context.Background(), 43, nil)
			assert.NoError(t, err)
			if created {
				createdCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, client.created.Load())
	assert.EqualValues(t, 1, createdCount.Load())
}

func TestForgetDuringBuildIsNotLost(t *testing.T) {
	client := &fakeClient{delay: 50 * time.Millisecond}
	r := newTestRehydrator(client, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s, _, err := r.Obtain(context.Background(), 9, nil)
		assert.NoError(t, err)
		assert.NotNil(t, s)
	}()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, r.Forget(9))
	<-done

	_, found := r.Peek(9)
	assert.False(t, found)

	// a later miss builds and caches normally
	_, created, err := r.Obtain(context.Background(), 9, nil)
	require.NoError(t, err)
	assert.True(t, created)
	_, found = r.Peek(9)
	assert.True(t, found)
}

func TestObtainPropagatesConstructionError(t *testing.T) {
	client := &fakeClient{createErr: errors.New("quota exceeded")}
	r := newTestRehydrator(client, nil, nil)

	_, _, err := r.Obtain(context.Background(), 3, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.createErr)

	_, found := r.Peek(3)
	assert.False(t, found)
}

func TestObtainGroundsNewSession(t *testing.T) {
	client := &fakeClient{}
	sink := &recordingSink{}
	docs := staticDocs{llm.FilePart("files/a", "application/pdf")}
	r := newTestRehydrator(client, docs, sink)

	s, _, err := r.Obtain(context.Background(), 9, nil)
	require.NoError(t, err)

	fs := s.(*fakeSession)
	require.Len(t, fs.sent, 1)
	assert.Equal(t, []llm.Part(docs), fs.sent[0])
	assert.Equal(t, []bool{true}, sink.grounded)
}

func TestObtainToleratesGroundingFailure(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("upstream down")}
	sink := &recordingSink{}
	r := newTestRehydrator(client, staticDocs{llm.TextPart("doc")}, sink)

	s, created, err := r.Obtain(context.Background(), 11, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, s)
	assert.Equal(t, []bool{false}, sink.grounded)

	cached, found := r.Peek(11)
	assert.True(t, found)
	assert.Same(t, s, cached)
}

func TestObtainIgnoresCancelledCallerDuringBuild(t *testing.T) {
	client := &fakeClient{}
	r := newTestRehydrator(client, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, created, err := r.Obtain(ctx, 12, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, s)
}
