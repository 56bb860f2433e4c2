// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - API key authentication over bcrypt hashes
//   - Reusable middleware components
//
// # Health Checks
//
// The CompositeHealthChecker runs registered named checks in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("redis", handlers.NewPingCheck(pubsub))
//	checker.AddCheck("roster_db", handlers.NewPingCheck(conn))
//
//	status := checker.Check(ctx)
//
// # Authentication
//
// Keys are configured as bcrypt hashes, never in plain text:
//
//	hash, _ := handlers.HashAPIKey("teacher-key")
//	auth := handlers.NewAPIKeyAuth("X-API-Key", []string{hash})
//	mux.Handle("POST /api/v1/topics", auth.Middleware(h))
//
// With no hashes configured the middleware lets every request through, which
// is the usual setup for a single classroom on localhost.
package handlers
