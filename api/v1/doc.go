/*
Package v1 defines the wire-level data model shared by Sekas clients and
servers.

This package contains the cluster descriptors (groups, replicas, shards,
epochs), the request/response unions carried inside a GroupRequest, and
the error envelope servers attach to failed group operations. The client
routing layer makes all of its policy decisions (leader hints, epoch
adoption, shard containment) against these types.

Payload serialization is pluggable and not part of this package's
contract; the error envelope is the one structure encoded here, because
it travels inside gRPC status details and must be decodable without any
generated bindings.
*/
package v1
