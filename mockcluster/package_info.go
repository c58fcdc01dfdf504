// Package mockcluster provides in-memory stand-ins for the cluster under test: a scripted
// lifecycle.Cluster and an HTTP handler that behaves like the parts of PuppetDB that the harness
// queries.
package mockcluster
