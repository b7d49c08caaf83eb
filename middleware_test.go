package ragbox

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-kit/kit/metrics"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/persistence/chromem"
	"github.com/flarexio/ragbox/persistence/disk"
	"github.com/flarexio/ragbox/vector"
	"github.com/flarexio/ragbox/vector/vectortest"
)

type observation struct {
	labels []string
	value  float64
}

type observations struct {
	mu   sync.Mutex
	list []observation
}

func (o *observations) all() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]observation{}, o.list...)
}

type fakeMetric struct {
	labels []string
	seen   *observations
}

func newFakeMetric() *fakeMetric {
	return &fakeMetric{seen: new(observations)}
}

func (m *fakeMetric) With(labelValues ...string) *fakeMetric {
	return &fakeMetric{
		labels: append(append([]string{}, m.labels...), labelValues...),
		seen:   m.seen,
	}
}

func (m *fakeMetric) record(v float64) {
	m.seen.mu.Lock()
	defer m.seen.mu.Unlock()

	m.seen.list = append(m.seen.list, observation{m.labels, v})
}

type fakeCounter struct{ *fakeMetric }

func (c fakeCounter) With(labelValues ...string) metrics.Counter {
	return fakeCounter{c.fakeMetric.With(labelValues...)}
}

func (c fakeCounter) Add(delta float64) { c.record(delta) }

type fakeHistogram struct{ *fakeMetric }

func (h fakeHistogram) With(labelValues ...string) metrics.Histogram {
	return fakeHistogram{h.fakeMetric.With(labelValues...)}
}

func (h fakeHistogram) Observe(value float64) { h.record(value) }

func newTestService(t *testing.T) (Service, *recordingProvider) {
	cfg := Config{
		Storage: document.Config{Path: t.TempDir()},
	}

	docs, err := disk.NewDocumentStore(cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}

	provider := &recordingProvider{answer: "42"}
	indexes := chromem.NewIndexStore(docs, cfg.Vector)

	return NewService(cfg, docs, indexes, vectortest.NewEmbedder(64), provider), provider
}

func TestInstrumentingMiddleware(t *testing.T) {
	assert := assert.New(t)

	counter := fakeCounter{newFakeMetric()}
	latency := fakeHistogram{newFakeMetric()}

	svc, _ := newTestService(t)
	svc = InstrumentingMiddleware(counter, latency)(svc)

	ctx := context.Background()

	err := svc.Upload(ctx, "s1", "a.txt", []byte("alpha"))
	assert.NoError(err)

	_, err = svc.ListFiles(ctx, "missing")
	assert.Error(err)

	counts := counter.seen.all()
	if !assert.Len(counts, 2) {
		return
	}

	assert.Equal([]string{"method", "upload", "error", "false"}, counts[0].labels)
	assert.Equal(1.0, counts[0].value)
	assert.Equal([]string{"method", "list_files", "error", "true"}, counts[1].labels)

	assert.Len(latency.seen.all(), 2)
}

func TestLoggingMiddleware(t *testing.T) {
	assert := assert.New(t)

	core, logs := observer.New(zap.InfoLevel)

	svc, _ := newTestService(t)
	svc = LoggingMiddleware(zap.New(core))(svc)

	ctx := context.Background()

	err := svc.Upload(ctx, "s1", "a.txt", []byte("alpha"))
	assert.NoError(err)

	err = svc.DeleteSession(ctx, "missing")
	assert.ErrorIs(err, document.ErrSessionNotFound)

	uploads := logs.FilterField(zap.String("action", "upload")).All()
	if assert.Len(uploads, 1) {
		assert.Equal("file uploaded", uploads[0].Message)
		assert.Equal(zap.InfoLevel, uploads[0].Level)
	}

	deletes := logs.FilterField(zap.String("action", "delete_session")).All()
	if assert.Len(deletes, 1) {
		assert.Equal(zap.ErrorLevel, deletes[0].Level)
		assert.True(strings.Contains(deletes[0].Message, "session not found"))
	}
}

func TestProxyMiddleware(t *testing.T) {
	assert := assert.New(t)

	svc, provider := newTestService(t)

	endpoints := MakeEndpoints(svc)
	proxy := ProxyMiddleware(&endpoints)(nil)

	ctx := context.Background()

	err := proxy.Upload(ctx, "s1", "notes.txt", []byte("The quarterly revenue was $5M"))
	assert.NoError(err)

	err = proxy.Upload(ctx, "s1", "pets.txt", []byte("My cat sleeps on the sofa"))
	assert.NoError(err)

	files, err := proxy.ListFiles(ctx, "s1")
	assert.NoError(err)
	assert.Equal([]string{"notes.txt", "pets.txt"}, files)

	content, err := proxy.ReadFile(ctx, "s1", "notes.txt")
	assert.NoError(err)
	assert.Equal("The quarterly revenue was $5M", content)

	matches, err := proxy.Search(ctx, "s1", "revenue", 1)
	assert.NoError(err)
	if assert.Len(matches, 1) {
		assert.Equal("notes.txt", matches[0].ID)
	}

	answer, err := proxy.Ask(ctx, "s1", "What was the revenue?")
	assert.NoError(err)
	assert.Equal("42", answer)
	assert.Contains(provider.last().User, "The quarterly revenue was $5M")

	answer, err = proxy.AskWithHistory(ctx, "again", []HistoryEntry{{Sender: "user", Message: "hi"}})
	assert.NoError(err)
	assert.Equal("42", answer)

	err = proxy.DeleteSession(ctx, "s1")
	assert.NoError(err)

	_, err = proxy.Search(ctx, "s1", "revenue")
	assert.ErrorIs(err, vector.ErrIndexNotFound)

	assert.Error(proxy.Close())
}
