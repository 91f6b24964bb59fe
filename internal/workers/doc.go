// Package workers sizes worker pools from the schedulable CPU count.
//
// runtime.NumCPU reports the host's cores even when a container is
// limited to a fraction of them; GOMAXPROCS tracks the cgroup limit, so
// pools sized from it do not oversubscribe constrained deployments. The
// PREVIEW_WORKERS environment variable overrides the calculation when an
// operator needs a fixed pool size.
package workers
