// Package core assembles the client resilience stack from a config.Config.
//
// New builds, in order: the PII redactor, telemetry (logger, tracer,
// metrics), the storage tiers, the credential store (migrating legacy
// plaintext tokens when enabled), the query cache, the audit trail, the
// backend API client, the notification settings service, the session and
// the health aggregator. Each component is also reachable on its own so
// callers can use only what they need.
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	client, err := core.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	loan, err := client.Loan(ctx, "L-1001")
package core
