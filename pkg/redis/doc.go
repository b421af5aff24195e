// Package redis connects to the Redis instance that backs webhook event
// de-duplication, retrying until the server answers PING, and exposes a
// readiness check for the /health/ready probe.
package redis
