/*
Package config loads the client configuration used by sekasctl.

The configuration is a YAML file naming the cluster's nodes and routing
seeds plus client tuning (request timeout, log level). Defaults cover
everything but the node list.
*/
package config
