package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Topics names every bus topic the analyzer uses
type Topics struct {
	AnalyzeRequest   string `yaml:"analyze_request"`
	AnalyzeResult    string `yaml:"analyze_result"`
	DependencyUpdate string `yaml:"dependency_update"`
	DependencyStatus string `yaml:"dependency_status"`
	ModuleUpdate     string `yaml:"module_update"`
	ModuleStatus     string `yaml:"module_status"`
	Alert            string `yaml:"alert"`
}

// MyceliumConfig holds message bus settings
type MyceliumConfig struct {
	Topics Topics `yaml:"topics"`
}

// OTelConfig holds OpenTelemetry tracing settings
type OTelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Config holds all analyzer configuration
type Config struct {
	// Seconds an analysis stays cached
	CacheDuration int `yaml:"cache_duration"`
	// Seconds; reserved for blocking sub-operations
	AnalysisTimeout int `yaml:"analysis_timeout"`

	Mycelium MyceliumConfig `yaml:"mycelium"`

	// Runtime settings for the binary
	NodeID         string     `yaml:"node_id"`
	RedisURL       string     `yaml:"redis_url"`
	LogLevel       string     `yaml:"log_level"`
	MetricsAddr    string     `yaml:"metrics_addr"`
	HandlerWorkers int        `yaml:"handler_workers"`
	OTel           OTelConfig `yaml:"otel"`
}

// CacheTTL returns CacheDuration as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDuration) * time.Second
}

// AnalysisTimeoutDuration returns AnalysisTimeout as a duration
func (c *Config) AnalysisTimeoutDuration() time.Duration {
	return time.Duration(c.AnalysisTimeout) * time.Second
}

// DefaultDocument returns the built-in configuration document
func DefaultDocument() map[string]interface{} {
	return map[string]interface{}{
		"cache_duration":   300,
		"analysis_timeout": 10,
		"mycelium": map[string]interface{}{
			"topics": map[string]interface{}{
				"analyze_request":   "nexus.analyze.request",
				"analyze_result":    "nexus.analyze.result",
				"dependency_update": "nexus.dependency.update",
				"dependency_status": "nexus.dependency.status",
				"module_update":     "nexus.module.update",
				"module_status":     "nexus.module.status",
				"alert":             "nexus.alert",
			},
		},
		"node_id":         "nexus-analyzer",
		"redis_url":       "redis://localhost:6379/0",
		"log_level":       "info",
		"metrics_addr":    ":9090",
		"handler_workers": 8,
		"otel": map[string]interface{}{
			"enabled":      false,
			"endpoint":     "localhost:4317",
			"service_name": "nexus-analyzer",
			"insecure":     true,
		},
	}
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return FromDocument(nil, nil)
}

// Merge deep-merges src over dst and returns the result. Nested maps merge
// key by key, any other value in src replaces the one in dst, and keys absent
// from src keep the dst value. Neither input is modified.
func Merge(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst))
	for k, v := range dst {
		if m, ok := asMap(v); ok {
			out[k] = Merge(m, nil)
			continue
		}
		out[k] = v
	}

	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(out[k])
		if srcIsMap && dstIsMap {
			out[k] = Merge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			out[k] = Merge(nil, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

// FromDocument merges doc over the defaults and decodes it. Keys that are
// missing or hold an unusable value fall back to their default; each
// fallback for a supplied key is logged as a warning.
func FromDocument(doc map[string]interface{}, log *logrus.Logger) *Config {
	if log == nil {
		log = logrus.New()
	}
	defaults := DefaultDocument()
	d := &decoder{
		merged:   Merge(defaults, doc),
		defaults: defaults,
		log:      log,
	}

	cfg := &Config{
		CacheDuration:   d.positiveInt("cache_duration"),
		AnalysisTimeout: d.positiveInt("analysis_timeout"),
		Mycelium: MyceliumConfig{
			Topics: Topics{
				AnalyzeRequest:   d.nonEmptyString("mycelium", "topics", "analyze_request"),
				AnalyzeResult:    d.nonEmptyString("mycelium", "topics", "analyze_result"),
				DependencyUpdate: d.nonEmptyString("mycelium", "topics", "dependency_update"),
				DependencyStatus: d.nonEmptyString("mycelium", "topics", "dependency_status"),
				ModuleUpdate:     d.nonEmptyString("mycelium", "topics", "module_update"),
				ModuleStatus:     d.nonEmptyString("mycelium", "topics", "module_status"),
				Alert:            d.nonEmptyString("mycelium", "topics", "alert"),
			},
		},
		NodeID:         d.nonEmptyString("node_id"),
		RedisURL:       d.nonEmptyString("redis_url"),
		LogLevel:       d.nonEmptyString("log_level"),
		MetricsAddr:    d.string("metrics_addr"),
		HandlerWorkers: d.positiveInt("handler_workers"),
		OTel: OTelConfig{
			Enabled:     d.bool("otel", "enabled"),
			Endpoint:    d.nonEmptyString("otel", "endpoint"),
			ServiceName: d.nonEmptyString("otel", "service_name"),
			Insecure:    d.bool("otel", "insecure"),
		},
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Warn("invalid topic configuration, using default topics")
		cfg.Mycelium.Topics = Defaults().Mycelium.Topics
	}
	return cfg
}

// Parse decodes a YAML (or JSON) configuration document
func Parse(data []byte) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return doc, nil
}

// Load reads the configuration file at path. A missing, unreadable or
// malformed file is logged and the defaults are used instead.
func Load(path string, log *logrus.Logger) *Config {
	if log == nil {
		log = logrus.New()
	}
	if path == "" {
		return FromDocument(nil, log)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithField("path", path).WithError(err).Warn("failed to read configuration, using defaults")
		return FromDocument(nil, log)
	}

	doc, err := Parse(data)
	if err != nil {
		log.WithField("path", path).WithError(err).Warn("malformed configuration, using defaults")
		return FromDocument(nil, log)
	}
	return FromDocument(doc, log)
}

// LoadConfig loads the file at path and applies environment overrides
func LoadConfig(path string, log *logrus.Logger) *Config {
	cfg := Load(path, log)
	applyEnv(cfg)
	return cfg
}

// Validate checks that request topics never coincide with reply topics,
// which would make the analyzer consume its own replies.
func (c *Config) Validate() error {
	t := c.Mycelium.Topics
	inbound := map[string]string{
		t.AnalyzeRequest:   "analyze_request",
		t.DependencyUpdate: "dependency_update",
		t.ModuleUpdate:     "module_update",
	}
	if len(inbound) != 3 {
		return errors.New("inbound topics must be distinct")
	}
	for _, out := range []string{t.AnalyzeResult, t.DependencyStatus, t.ModuleStatus, t.Alert} {
		if name, ok := inbound[out]; ok {
			return fmt.Errorf("topic %q is used both for %s and for a reply", out, name)
		}
	}
	return nil
}

// applyEnv overrides configuration values from environment variables
func applyEnv(cfg *Config) {
	cfg.CacheDuration = getEnvInt("NEXUS_CACHE_DURATION", cfg.CacheDuration)
	cfg.AnalysisTimeout = getEnvInt("NEXUS_ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.NodeID = getEnv("NEXUS_NODE_ID", cfg.NodeID)
	cfg.RedisURL = getEnv("NEXUS_REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getEnv("NEXUS_LOG_LEVEL", cfg.LogLevel)
	cfg.MetricsAddr = getEnv("NEXUS_METRICS_ADDR", cfg.MetricsAddr)
	cfg.HandlerWorkers = getEnvInt("NEXUS_HANDLER_WORKERS", cfg.HandlerWorkers)
	cfg.OTel.Enabled = getEnvBool("NEXUS_OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = getEnv("NEXUS_OTEL_ENDPOINT", cfg.OTel.Endpoint)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns a positive integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

// decoder reads typed values out of a merged document
type decoder struct {
	merged   map[string]interface{}
	defaults map[string]interface{}
	log      *logrus.Logger
}

func (d *decoder) positiveInt(path ...string) int {
	def := lookup(d.defaults, path).(int)
	raw := lookup(d.merged, path)
	v, ok := toInt(raw)
	if !ok || v <= 0 {
		d.fallback(path, raw, def)
		return def
	}
	return v
}

func (d *decoder) string(path ...string) string {
	def := lookup(d.defaults, path).(string)
	raw := lookup(d.merged, path)
	v, ok := raw.(string)
	if !ok {
		d.fallback(path, raw, def)
		return def
	}
	return v
}

func (d *decoder) nonEmptyString(path ...string) string {
	def := lookup(d.defaults, path).(string)
	raw := lookup(d.merged, path)
	v, ok := raw.(string)
	if !ok || strings.TrimSpace(v) == "" {
		d.fallback(path, raw, def)
		return def
	}
	return v
}

func (d *decoder) bool(path ...string) bool {
	def := lookup(d.defaults, path).(bool)
	raw := lookup(d.merged, path)
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	d.fallback(path, raw, def)
	return def
}

func (d *decoder) fallback(path []string, raw, def interface{}) {
	d.log.WithFields(logrus.Fields{
		"key":     strings.Join(path, "."),
		"value":   raw,
		"default": def,
	}).Warn("invalid configuration value, using default")
}

func lookup(doc map[string]interface{}, path []string) interface{} {
	var cur interface{} = doc
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}
