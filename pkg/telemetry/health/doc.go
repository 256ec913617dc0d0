// Package health provides liveness and readiness probes for the evaluation
// daemon.
//
// The daemon registers a check per long-lived component (history store,
// definitions loader, sensor loop). Liveness answers "is the process alive"
// without touching components; readiness runs every registered check and
// degrades when any fail, which stops orchestrators from routing work at a
// daemon whose database or definitions file is broken.
//
// Handlers are mounted on the same HTTP server as the metrics endpoint:
//
//	checker := health.New(0)
//	checker.Register("history", func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//	http.Handle("/healthz", checker.LivenessHandler())
//	http.Handle("/readyz", checker.ReadinessHandler())
package health
