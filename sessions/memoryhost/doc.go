// Package memoryhost provides an in-memory sessions.Backend implementation
// suitable for tests, development, and single-process servers. All state is
// ephemeral and discarded on process exit.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	IDs               : random UUIDs (github.com/google/uuid)
//	Expiry            : optional idle TTL, swept lazily or by Run
//	Concurrency       : safe (single mutex)
//
// Example:
//
//	host := memoryhost.New(memoryhost.WithTTL(30 * time.Minute))
//	go host.Run(ctx, time.Minute)
//	sess := sessions.New(host)
//
// For production multi-node deployments prefer a durable host like redishost.
package memoryhost
