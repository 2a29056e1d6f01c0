/*
Package log provides structured logging for Sekas client components.

It wraps zerolog with a global logger configured once at startup and
child-logger helpers that attach the fields routing code logs on every
decision: component, group id, node id.
*/
package log
