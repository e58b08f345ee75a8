// Package health reports whether the client core's dependencies are usable.
//
// A Checker inspects one component: the durable storage tier, the signed-in
// session, the credential tiers. An Aggregator runs every registered
// checker concurrently under one deadline and folds the results into a
// Report that can be logged or attached to a support request.
//
//	agg := health.NewAggregator()
//	agg.Register("storage", health.NewStorageChecker(db))
//	agg.Register("session", health.NewSessionChecker(session))
//
//	report := agg.Report(ctx)
//	if report.Status != health.StatusHealthy.String() {
//		logger.Warn(ctx, "client degraded", observe.F("health", report))
//	}
package health
