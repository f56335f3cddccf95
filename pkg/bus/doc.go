// Package bus provides the topic-based publish/subscribe transport the analyzer runs on.
//
// # Overview
//
// Every interaction with the analyzer is a Message published on a topic. The
// Bus interface is the only seam between the analyzer and the outside world:
//
//	type Bus interface {
//		Subscribe(topic string, handler Handler) error
//		PublishEvent(ctx context.Context, topic string, payload map[string]interface{}) error
//	}
//
// PublishEvent synthesizes the message header (message ID, timestamp, sender
// node, topic) so callers only supply the payload.
//
// # Implementations
//
// MemoryBus delivers synchronously inside the process and records every
// published message. It is used by tests and by single-process deployments:
//
//	b := bus.NewMemoryBus("analyzer-1")
//	b.Subscribe("nexus.alert", func(ctx context.Context, msg bus.Message) {
//		fmt.Println(msg.Payload["message"])
//	})
//
// RedisBus carries JSON-encoded envelopes over Redis pub/sub channels named
// after the topic. Each delivery runs as one task on a worker pool:
//
//	b, err := bus.NewRedisBus(bus.RedisConfig{URL: "redis://localhost:6379/0", NodeID: "analyzer-1"}, logger)
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//	b.Subscribe("nexus.analyze.request", handler)
//	go b.Run(ctx)
//
// # Related Packages
//
//   - pkg/analyzer: registers its handlers against a Bus
//   - pkg/async: worker pool used by RedisBus
package bus
