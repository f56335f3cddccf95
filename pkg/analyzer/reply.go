package analyzer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/nexus/pkg/bus"
	"github.com/platinummonkey/nexus/pkg/observability"
)

// Reply statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// handlerFunc computes the success payload of a reply
type handlerFunc func(ctx context.Context, msg bus.Message) (map[string]interface{}, error)

// reply runs fn and publishes exactly one reply on replyTopic. Errors and
// panics become {status:"error", error, request_id}; anything other than a
// validation failure also raises a processing_error alert after the reply.
func (s *Service) reply(ctx context.Context, msg bus.Message, op, replyTopic string, fn handlerFunc) {
	start := time.Now()
	topic := msg.Header.Topic

	ctx, span := s.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.message.id", msg.Header.MessageID),
		),
	)
	defer span.End()

	log := observability.WithTraceContext(ctx, s.log.WithFields(logrus.Fields{
		"topic":      topic,
		"message_id": msg.Header.MessageID,
		"request_id": msg.RequestID(),
	}))

	payload, err := invoke(ctx, msg, op, fn)
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		payload = map[string]interface{}{
			"status": StatusError,
			"error":  err.Error(),
		}
	} else {
		if payload == nil {
			payload = make(map[string]interface{})
		}
		payload["status"] = StatusSuccess
	}
	payload["request_id"] = msg.RequestID()

	if perr := s.publishReply(ctx, replyTopic, payload); perr != nil {
		outcome = observability.OutcomeError
		log.WithError(perr).WithField("reply_topic", replyTopic).Error("Failed to publish reply")
	}

	switch {
	case err == nil:
		log.Debug("Message handled")
	case IsValidation(err):
		log.WithError(err).Warn("Rejected invalid message")
	default:
		log.WithError(err).Error("Failed to process message")
		s.alert(ctx, AlertProcessingError, err.Error(), map[string]interface{}{
			"topic":      topic,
			"operation":  op,
			"request_id": msg.RequestID(),
		})
	}

	s.metrics.RecordMessage(topic, outcome, time.Since(start))
}

// invoke calls fn, converting panics and unclassified errors to ProcessingError
func invoke(ctx context.Context, msg bus.Message, op string, fn handlerFunc) (payload map[string]interface{}, err error) {
	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			payload = nil
			err = &ProcessingError{Op: op, Err: perr}
		}
	}()

	payload, err = fn(ctx, msg)
	if err != nil && !IsValidation(err) {
		if _, ok := err.(*ProcessingError); !ok {
			err = &ProcessingError{Op: op, Err: err}
		}
	}
	return payload, err
}

// publishReply publishes payload, turning a panic in the bus (or in a
// synchronous subscriber) into an error
func (s *Service) publishReply(ctx context.Context, topic string, payload map[string]interface{}) (err error) {
	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			err = perr
		}
	}()
	return s.bus.PublishEvent(ctx, topic, payload)
}

// PublishAlert publishes {type, message, details} on the alert topic
func (s *Service) PublishAlert(ctx context.Context, alertType, message string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	err := s.bus.PublishEvent(ctx, s.topics.Alert, map[string]interface{}{
		"type":    alertType,
		"message": message,
		"details": details,
	})
	s.metrics.RecordAlert(alertType, err)
	return err
}

// alert is the best-effort form of PublishAlert used on failure paths. It
// never panics and never returns an error.
func (s *Service) alert(ctx context.Context, alertType, message string, details map[string]interface{}) {
	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			s.log.WithError(perr).WithField("alert_type", alertType).Error("Alert publisher panicked")
		}
	}()

	if err := s.PublishAlert(ctx, alertType, message, details); err != nil {
		s.log.WithError(err).WithField("alert_type", alertType).Warn("Failed to publish alert")
	}
}
