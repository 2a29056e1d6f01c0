/*
Package metrics exposes Prometheus metrics for the Sekas client.

Collectors are package-level variables registered once via Register.
The group client counts retries and replica exhaustion, the migrate
client counts backoff iterations, and the router and connection manager
count lookups and dials.
*/
package metrics
