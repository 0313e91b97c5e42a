package flush

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/flushworks/flushd/pkg/mqtt"
	"github.com/flushworks/flushd/pkg/postgres"
)

// fakeMessage implements mqtt.Message for tests
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack()            {}

type publishedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeMQTT implements mqtt.Client with an in-memory publish log
type fakeMQTT struct {
	mu            sync.Mutex
	connected     bool
	published     []publishedMessage
	subscriptions map[string]mqtt.MessageHandler
	publishErr    error
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{subscriptions: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeMQTT) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[topic] = handler
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// publishedTo returns the messages published to one topic
func (f *fakeMQTT) publishedTo(topic string) []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedMessage
	for _, p := range f.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type zEntry struct {
	score  float64
	member string
}

// fakeRedis implements redis.Client with in-memory maps
type fakeRedis struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	zsets  map[string][]zEntry
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		zsets:  make(map[string][]zEntry),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeRedis) HSet(ctx context.Context, key string, field string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	f.hashes[key][field] = toString(value)
	return nil
}

// HGetAll is a test helper for asserting stored hashes
func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, score float64, member interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zsets[key] = append(f.zsets[key], zEntry{score: score, member: toString(member)})
	sort.Slice(f.zsets[key], func(i, j int) bool { return f.zsets[key][i].score < f.zsets[key][j].score })
	return nil
}

func (f *fakeRedis) ZRemRangeByScore(ctx context.Context, key string, min, max string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxScore, err := strconv.ParseFloat(max, 64)
	if err != nil {
		// "-inf"/"+inf" bounds other than a plain number are not needed here
		return nil
	}
	var kept []zEntry
	for _, e := range f.zsets[key] {
		if e.score > maxScore {
			kept = append(kept, e)
		}
	}
	f.zsets[key] = kept
	return nil
}

func (f *fakeRedis) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.zsets[key]
	n := int64(len(entries))
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start += n
	}
	if start > stop || stop < 0 || start >= n {
		return nil
	}
	if stop >= n {
		stop = n - 1
	}
	f.zsets[key] = append(entries[:start], entries[stop+1:]...)
	return nil
}

// ZCard is a test helper for asserting sample history sizes
func (f *fakeRedis) ZCard(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zsets[key])), nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Close() error                   { return nil }

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

type executedQuery struct {
	query string
	args  []interface{}
}

// fakePostgres implements postgres.Client and records executed statements
type fakePostgres struct {
	mu       sync.Mutex
	executed []executedQuery
	execErr  error
}

func (f *fakePostgres) Connect(ctx context.Context) error { return nil }
func (f *fakePostgres) Disconnect() error                 { return nil }

func (f *fakePostgres) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.executed = append(f.executed, executedQuery{query: query, args: args})
	return nil, nil
}

func (f *fakePostgres) Ping(ctx context.Context) error { return nil }

func (f *fakePostgres) HealthCheck(ctx context.Context) (*postgres.HealthStatus, error) {
	return &postgres.HealthStatus{Connected: true}, nil
}
