package jobs

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueue_PriorityThenFIFO(t *testing.T) {
	q := NewQueue(10)

	require.True(t, q.Enqueue(&Job{Transcript: "low-1", Priority: PriorityLow}))
	require.True(t, q.Enqueue(&Job{Transcript: "normal-1", Priority: PriorityNormal}))
	require.True(t, q.Enqueue(&Job{Transcript: "high-1", Priority: PriorityHigh}))
	require.True(t, q.Enqueue(&Job{Transcript: "high-2", Priority: PriorityHigh}))
	require.True(t, q.Enqueue(&Job{Transcript: "normal-2", Priority: PriorityNormal}))

	var order []string
	for q.Len() > 0 {
		order = append(order, q.Dequeue().Transcript)
	}
	assert.Equal(t, []string{"high-1", "high-2", "normal-1", "normal-2", "low-1"}, order)
}

func TestQueue_BoundedAndClosed(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.Enqueue(&Job{}))
	assert.True(t, q.Enqueue(&Job{}))
	assert.False(t, q.Enqueue(&Job{}), "full queue rejects")

	q.Close()
	assert.False(t, q.Enqueue(&Job{}), "closed queue rejects")
}

func TestQueue_DequeueUnblocksOnClose(t *testing.T) {
	q := NewQueue(2)

	done := make(chan *Job, 1)
	go func() { done <- q.Dequeue() }()

	q.Close()
	select {
	case job := <-done:
		assert.Nil(t, job)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on Close")
	}
}

const transcript = `Grandma's Apple Cake
Today we are baking something special.
You need 2 cups flour for the base.
Also 1 cup sugar and a pinch of salt.
Take 3 apples from the fridge.
Preheat the oven to 350 degrees.
Mix the dry ingredients together.
Bake for 45 minutes until golden.`

func TestKeywordExtractor(t *testing.T) {
	recipe, err := KeywordExtractor{}.Extract(context.Background(), transcript)
	require.NoError(t, err)

	assert.Equal(t, "Grandma's Apple Cake", recipe.Title)
	assert.Equal(t, "keyword", recipe.Source)
	assert.Equal(t, []string{
		"You need 2 cups flour for the base.",
		"Also 1 cup sugar and a pinch of salt.",
	}, recipe.Ingredients)
	assert.Equal(t, []string{
		"Preheat the oven to 350 degrees.",
		"Mix the dry ingredients together.",
		"Bake for 45 minutes until golden.",
	}, recipe.Instructions)
}

func TestKeywordExtractor_EmptyTranscript(t *testing.T) {
	recipe, err := KeywordExtractor{}.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled recipe", recipe.Title)
	assert.Empty(t, recipe.Ingredients)
}

// failingExtractor stands in for an unavailable primary pipeline.
type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, transcript string) (*ExtractedRecipe, error) {
	return nil, stderrors.New("model unavailable")
}

// scriptedExtractor returns a fixed recipe.
type scriptedExtractor struct{ title string }

func (s scriptedExtractor) Extract(ctx context.Context, transcript string) (*ExtractedRecipe, error) {
	return &ExtractedRecipe{Title: s.title, Source: "llm"}, nil
}

func waitForResult(t *testing.T, w *Worker, job *Job) Result {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if r, ok := w.Result(job.ID); ok &&
			(r.Status == StatusCompleted || r.Status == StatusFailed) {
			return r
		}
		select {
		case <-deadline:
			t.Fatal("job never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorker_PrimaryExtractor(t *testing.T) {
	w := NewWorker(NewQueue(10), scriptedExtractor{title: "Pasta"}, zap.NewNop())
	go w.Run(context.Background())
	defer w.Stop()

	job, ok := w.Submit(transcript, PriorityNormal)
	require.True(t, ok)

	result := waitForResult(t, w, job)
	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.Recipe)
	assert.Equal(t, "Pasta", result.Recipe.Title)
	assert.Equal(t, "llm", result.Recipe.Source)
}

func TestWorker_FallsBackToKeywordExtraction(t *testing.T) {
	w := NewWorker(NewQueue(10), failingExtractor{}, zap.NewNop())
	go w.Run(context.Background())
	defer w.Stop()

	job, ok := w.Submit(transcript, PriorityHigh)
	require.True(t, ok)

	result := waitForResult(t, w, job)
	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.Recipe)
	assert.Equal(t, "keyword", result.Recipe.Source)
	assert.Equal(t, "Grandma's Apple Cake", result.Recipe.Title)
}

func TestWorker_NilPrimaryUsesFallback(t *testing.T) {
	w := NewWorker(NewQueue(10), nil, zap.NewNop())
	go w.Run(context.Background())
	defer w.Stop()

	job, ok := w.Submit(transcript, PriorityLow)
	require.True(t, ok)

	result := waitForResult(t, w, job)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "keyword", result.Recipe.Source)
}

// slowExtractor delays completion so in-flight state can be observed.
type slowExtractor struct{ delay time.Duration }

func (s slowExtractor) Extract(ctx context.Context, transcript string) (*ExtractedRecipe, error) {
	time.Sleep(s.delay)
	return &ExtractedRecipe{Title: "Stew", Source: "llm"}, nil
}

func TestWorker_ResultIsSnapshot(t *testing.T) {
	w := NewWorker(NewQueue(10), slowExtractor{delay: 50 * time.Millisecond}, zap.NewNop())
	go w.Run(context.Background())
	defer w.Stop()

	job, ok := w.Submit(transcript, PriorityNormal)
	require.True(t, ok)

	early, ok := w.Result(job.ID)
	require.True(t, ok)

	// Poll from a second goroutine while the worker finishes the job;
	// every snapshot must be internally consistent.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			r, ok := w.Result(job.ID)
			if !assert.True(t, ok) {
				return
			}
			if r.Status == StatusCompleted {
				assert.NotNil(t, r.Recipe)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never completed")
	}

	// The earlier snapshot does not alias the worker's record.
	assert.NotEqual(t, StatusCompleted, early.Status)
	assert.Nil(t, early.Recipe)
}

func TestWorker_UnknownJob(t *testing.T) {
	w := NewWorker(NewQueue(10), nil, zap.NewNop())

	_, ok := w.Result(uuid.New())
	assert.False(t, ok)
}
