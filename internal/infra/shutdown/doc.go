// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT, SIGTERM, cancellation of a parent context or
// an explicit Trigger, then runs the registered hooks in reverse order of
// registration under a shared timeout:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("redis server", srv.Shutdown)
//	h.OnShutdown("aof", func(context.Context) error { return w.Close() })
//	err := h.Wait(ctx)
package shutdown
