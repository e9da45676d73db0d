// Package handlers contains reusable HTTP building blocks for the API server:
// health checks and middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("postgres", handlers.NewPingCheck(conn))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//	checker.AddCheck("level_b_store", handlers.NewBreakerCheck("level_b_store", guard.Breaker()))
//
//	status := checker.Check(ctx)
//
// A failed check marks the service unhealthy and not ready.
//
// # Middleware
//
// All middleware has the func(http.Handler) http.Handler shape and can be
// passed straight to chi's Router.Use.
package handlers
