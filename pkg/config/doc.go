// Package config loads analyzer configuration from a YAML document and environment variables.
//
// # Overview
//
// The built-in document is the baseline. A user document is deep-merged over
// it key by key, so a partial document only overrides what it names:
//
//	cache_duration: 600
//	mycelium:
//	  topics:
//	    analyze_request: custom.request
//
// leaves every other topic at its default. Values of the wrong type, or
// non-positive durations, fall back to the default for that key and a warning
// is logged. A missing or malformed file never fails startup.
//
// # Defaults
//
//	cache_duration: 300        # seconds
//	analysis_timeout: 10       # seconds
//	mycelium.topics:
//	  analyze_request:   nexus.analyze.request
//	  analyze_result:    nexus.analyze.result
//	  dependency_update: nexus.dependency.update
//	  dependency_status: nexus.dependency.status
//	  module_update:     nexus.module.update
//	  module_status:     nexus.module.status
//	  alert:             nexus.alert
//
// # Environment
//
// LoadConfig applies these overrides after the file:
//
//	NEXUS_CACHE_DURATION="600"
//	NEXUS_ANALYSIS_TIMEOUT="10"
//	NEXUS_REDIS_URL="redis://localhost:6379/0"
//	NEXUS_NODE_ID="nexus-analyzer"
//	NEXUS_LOG_LEVEL="info"
//	NEXUS_METRICS_ADDR=":9090"
//	NEXUS_HANDLER_WORKERS="8"
//	NEXUS_OTEL_ENABLED="false"
//	NEXUS_OTEL_ENDPOINT="localhost:4317"
//
// # Reloading
//
// Watch follows the file with fsnotify and hands every reloaded Config to a
// callback. The analyzer uses it to apply a new cache_duration without a
// restart.
package config
