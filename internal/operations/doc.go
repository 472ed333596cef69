// Package operations runs the thermal analysis over batches of sample
// directories.
//
// Each sample passes through five registered steps in dependency order:
// read inputs, fit probes, flux, flux errors and write output. The first
// failing step fails its sample and skips the rest; other samples are not
// affected. Samples are spread over a bounded number of workers (one by
// default) and share no mutable state.
//
// Example usage:
//
//	manager := operations.NewManager(nil, operations.NewConfigFromApp(cfg), tracer, logger)
//	report, err := manager.Run(ctx, cfg.Samples.SampleRefs())
package operations
