// Package redishost provides a Redis-backed sessions.Backend.
//
// Each session is a single JSON document stored under
// "<prefix>data:<id>" with a sliding TTL refreshed on every Open and Write.
// Regeneration renames the key atomically through a Lua script, so items
// follow the session to its new ID without a read-modify-write race.
//
// Values round-trip through encoding/json: numbers come back as float64 and
// structs as map[string]any.
//
// Configuration can be loaded from the environment:
//
//	REDIS_ADDR           (default localhost:6379)
//	SESSIONS_KEY_PREFIX  (default httpkit:sessions:)
//	SESSIONS_TTL         (default 24h)
//	SESSIONS_STRICT      (default false)
//
// Example:
//
//	host, err := redishost.NewFromEnv()
//	if err != nil { return err }
//	defer host.Close()
//	sess := sessions.New(host)
package redishost
