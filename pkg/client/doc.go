/*
Package client implements the Sekas group client: the routing and retry
state machine between user operations and a replicated group.

A GroupClient turns a logical (group, shard, key) operation into a
sequence of RPCs addressed to the right node. It tracks the group's
epoch, keeps a leader hint, walks the replica set when the hint fails,
and classifies every error into either a local recovery (try the next
node, adopt a newer descriptor) or a caller-visible failure.

MigrateClient wraps GroupClient with a backoff loop for migration-scope
RPCs, constructing a fresh GroupClient per iteration so stale leader
hints never survive a retry.

A GroupClient is single-owner: it must not be used from concurrent
calls. The router and connection manager it reads are shared and safe
for concurrent use.
*/
package client
