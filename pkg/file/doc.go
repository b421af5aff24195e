// Package file writes objects to Amazon S3 or an S3-compatible service
// (MinIO, R2). The billing reconciler uses it to archive verified webhook
// payloads for later replay and audit.
package file
