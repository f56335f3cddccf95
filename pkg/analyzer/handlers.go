package analyzer

import (
	"context"
	"strings"

	"github.com/platinummonkey/nexus/pkg/bus"
	"github.com/platinummonkey/nexus/pkg/observability"
)

// dispatch routes a delivery by its header topic. Unknown topics get no reply.
func (s *Service) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Header.Topic {
	case s.topics.AnalyzeRequest:
		s.reply(ctx, msg, "analyze", s.topics.AnalyzeResult, s.handleAnalyze)
	case s.topics.DependencyUpdate:
		s.reply(ctx, msg, "update dependencies", s.topics.DependencyStatus, s.handleDependencyUpdate)
	case s.topics.ModuleUpdate:
		s.reply(ctx, msg, "update module", s.topics.ModuleStatus, s.handleModuleUpdate)
	default:
		s.log.WithField("topic", msg.Header.Topic).Debug("Ignoring message on unbound topic")
		s.metrics.MessagesTotal.WithLabelValues(observability.UnboundTopic, observability.OutcomeIgnored).Inc()
	}
}

func (s *Service) handleAnalyze(ctx context.Context, msg bus.Message) (map[string]interface{}, error) {
	target, err := requireString(msg.Payload, "target")
	if err != nil {
		return nil, err
	}
	t, err := ParseAnalysisType(msg.Payload["type"])
	if err != nil {
		return nil, err
	}
	includeMetadata, err := optionalBool(msg.Payload, "include_metadata", true)
	if err != nil {
		return nil, err
	}

	result, err := s.Analyze(ctx, target, t, includeMetadata)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"result": result.Map()}, nil
}

func (s *Service) handleDependencyUpdate(ctx context.Context, msg bus.Message) (map[string]interface{}, error) {
	module, err := requireString(msg.Payload, "module")
	if err != nil {
		return nil, err
	}
	deps, err := requireStringList(msg.Payload, "dependencies")
	if err != nil {
		return nil, err
	}
	metadata, err := optionalMap(msg.Payload, "metadata")
	if err != nil {
		return nil, err
	}

	s.UpdateDependencies(module, deps, metadata)
	return map[string]interface{}{"module": module}, nil
}

func (s *Service) handleModuleUpdate(ctx context.Context, msg bus.Message) (map[string]interface{}, error) {
	module, err := requireString(msg.Payload, "module")
	if err != nil {
		return nil, err
	}
	metadata, err := optionalMap(msg.Payload, "metadata")
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		return nil, missing("metadata")
	}

	s.UpdateMetadata(module, metadata)
	return map[string]interface{}{"module": module}, nil
}

func requireString(payload map[string]interface{}, field string) (string, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return "", missing(field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalid(field, "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", missing(field)
	}
	return s, nil
}

func requireStringList(payload map[string]interface{}, field string) ([]string, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil, missing(field)
	}

	var items []interface{}
	switch v := raw.(type) {
	case []string:
		items = make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
	case []interface{}:
		items = v
	default:
		return nil, invalid(field, "must be a list of module names")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, invalid(field, "must contain only non-empty module names")
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalMap(payload map[string]interface{}, field string) (map[string]interface{}, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalid(field, "must be an object")
	}
	return m, nil
}

func optionalBool(payload map[string]interface{}, field string, def bool) (bool, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, invalid(field, "must be a boolean")
	}
	return b, nil
}
