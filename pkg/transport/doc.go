/*
Package transport connects Sekas clients to cluster nodes over gRPC.

The connection manager hands out one shared, multiplexed connection per
node address; handles are cheap to share and reconnection is gRPC's
concern. NodeClient exposes the node RPC surface (unary and streaming
group requests, shard movement, forwarding) over that connection.

Message payloads ride a registered codec; the wire encoding is not part
of the client's contract and can be swapped without touching routing.
*/
package transport
