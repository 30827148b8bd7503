/*
Package coordinator arbitrates concurrent logical calls to a slow
collaborator.

For a given fingerprint the coordinator serves a fresh cached result, attaches
the caller to an execution already in flight, or starts a new execution. The
underlying operation runs at most once per fingerprint at a time; its outcome
(value or error) is shared by every attached caller. Only successes are
cached, bounded by a freshness window and a capacity limit with
oldest-created-first eviction.
*/
package coordinator
