package analyzer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/nexus/pkg/bus"
)

type replyCollector struct {
	mu   sync.Mutex
	msgs []bus.Message
}

func (c *replyCollector) handle(ctx context.Context, msg bus.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *replyCollector) snapshot() []bus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bus.Message(nil), c.msgs...)
}

// startRedisService runs a service over a RedisBus backed by miniredis and
// returns the bus and a collector subscribed to the analyze result topic
func startRedisService(t *testing.T) (*Service, *bus.RedisBus, *replyCollector) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	b, err := bus.NewRedisBus(bus.RedisConfig{
		URL:             "redis://" + mr.Addr(),
		NodeID:          "nexus-analyzer",
		Workers:         2,
		HandlerTimeout:  time.Second,
		ShutdownTimeout: time.Second,
	}, log)
	require.NoError(t, err)

	s := newTestService(t, b, nil)
	results := &replyCollector{}
	require.NoError(t, b.Subscribe(topicResult, results.handle))

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(func() {
		cancel()
		b.Close()
	})

	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) == 4
	}, 5*time.Second, 10*time.Millisecond)

	return s, b, results
}

func TestService_OverRedis(t *testing.T) {
	s, b, results := startRedisService(t)
	s.UpdateDependencies("m1", []string{"d1", "d2"}, map[string]interface{}{"version": "1.0"})

	require.NoError(t, b.Publish(context.Background(), bus.NewRequest(testClientNodeID, "nexus-analyzer", topicAnalyze, testCorrelation,
		map[string]interface{}{"target": "m1"})))

	require.Eventually(t, func() bool {
		return len(results.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	reply := results.snapshot()[0]
	assert.Equal(t, StatusSuccess, reply.Payload["status"])
	assert.Equal(t, testCorrelation, reply.Payload["request_id"])

	// The payload crossed JSON, so lists arrive as []interface{}
	result := reply.Payload["result"].(map[string]interface{})
	assert.Equal(t, []interface{}{"d1", "d2"}, result["dependencies"])
	assert.Equal(t, "1.0", result["metadata"].(map[string]interface{})["version"])
}

func TestService_OverRedisPeerHeader(t *testing.T) {
	s, b, results := startRedisService(t)
	s.UpdateDependencies("m1", []string{"d1"}, nil)

	envelope := `{"header":{"message_id":"peer-1","correlation_id":7,"timestamp":"2024-01-01T00:00:00.123456",` +
		`"sender_node":"peer","topic":"` + topicAnalyze + `","message_type":"REQUEST"},"payload":{"target":"m1"}}`
	require.NoError(t, b.Client().Publish(context.Background(), topicAnalyze, envelope).Err())

	require.Eventually(t, func() bool {
		return len(results.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	reply := results.snapshot()[0]
	assert.Equal(t, StatusSuccess, reply.Payload["status"])
	assert.Equal(t, float64(7), reply.Payload["request_id"])
}
