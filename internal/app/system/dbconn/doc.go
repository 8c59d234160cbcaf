// Package dbconn owns the process's backend connections.
//
// Each backend (Redis, MongoDB) is wrapped by a connection manager with an
// explicit lifecycle:
//
//	uninitialized -> connecting -> ready | failed
//	any state     -> closed (after Close)
//
// Connect starts at most one attempt at a time. Concurrent and repeated calls
// while an attempt is in flight, or after it succeeded, share the same
// Pending result. A failed attempt is terminal for that Pending; calling
// Connect again starts a new attempt. Managers never retry on their own and
// never log: the caller owns restart policy and logging.
//
// ConnectRedis and ConnectMongoDB adapt the managers to a completion callback
// that is invoked exactly once.
package dbconn
