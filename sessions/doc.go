// Package sessions provides a key/value session facade bound to a client
// identifier. A Session keeps an in-memory mirror of the client's items and
// delegates persistence to a Backend.
//
// Layers & Roles
//
//	HTTP glue  -> reads the session cookie, calls Start, writes the cookie back
//	Session    -> per-request view: lifecycle (start/regenerate/destroy) + items
//	Backend    -> durability: open, read, write, regenerate, destroy per ID
//
// # Lifecycle
//
//	NotStarted --Start--> Started --Destroy--> NotStarted
//	Started --RegenerateID--> Started (new ID, same items)
//
// Items set before Start live only in memory and are replaced by the stored
// items when the session starts. Once started, Set, Remove and Clear write
// through to the backend.
//
// Destroy(ctx, false) keeps the stored items and the in-memory mirror, so
// values already loaded remain readable. Destroy(ctx, true) purges both.
//
// # Implementations
//
//	memoryhost : in-memory reference used for tests / single-process servers
//	redishost  : Redis hash per session with sliding TTL
//
// Backends are verified by the shared suite in sessionhosttest.
//
// Example:
//
//	sess := sessions.New(memoryhost.New(), sessions.WithID(cookieValue))
//	if err := sess.Start(ctx); err != nil {
//		return err
//	}
//	visits, _ := sess.GetOr("visits", 0).(int)
//	if err := sess.Set(ctx, "visits", visits+1); err != nil {
//		return err
//	}
package sessions
