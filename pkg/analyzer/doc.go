// Package analyzer answers dependency and quality analysis requests arriving on a message bus.
//
// # Overview
//
// A Service owns one module store and one analysis cache. It subscribes three
// request topics and publishes exactly one reply per request:
//
//	nexus.analyze.request    -> nexus.analyze.result     {target, type, include_metadata}
//	nexus.dependency.update  -> nexus.dependency.status  {module, dependencies, metadata?}
//	nexus.module.update      -> nexus.module.status      {module, metadata}
//
// Replies carry status "success" or "error" and echo the request's
// correlation ID as request_id. Failures never escape a handler: a single
// reply helper recovers panics and turns every error into an error reply.
//
// # Usage
//
//	svc, err := analyzer.New(b, cfg, analyzer.WithLogger(logger), analyzer.WithMetrics(metrics))
//	if err != nil {
//		return err
//	}
//	if err := svc.Start(); err != nil {
//		return err
//	}
//
// # Alerts
//
// Unexpected processing failures and analyses that find circular
// dependencies publish {type, message, details} on the alert topic. Alerts
// are best effort; a failed alert is logged and never changes the reply.
//
// # Caching
//
// The full analysis of a module is cached for cache_duration seconds and is
// dropped the moment that module's record changes. Derived fields of other
// modules, such as dependents, may lag until their own entry expires.
package analyzer
