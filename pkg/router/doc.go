/*
Package router maintains the client's view of cluster routing state.

The router is a process-wide, read-mostly table mapping group ids to
group state (epoch, leader hint, replica descriptors) and node ids to
transport addresses. Heartbeat ingestion replaces or updates entries;
lookups return consistent copies so an in-flight call never observes a
half-applied refresh.

An optional bbolt-backed snapshot store persists the table across
restarts so a freshly started process can route before the first
heartbeat arrives.
*/
package router
