// Package blobstore abstracts the object storage catview uses for baseline
// order tables and override snapshots.
//
// Implementations:
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with atomic renames
//   - s3.Store: Amazon S3 (sub-package s3)
//   - minio.Store: MinIO and other S3-compatible endpoints (sub-package minio)
//
// Blobs are immutable once written; Put replaces a blob atomically and
// readers opened before a replacement keep seeing the old bytes (subject to
// backend semantics).
package blobstore
