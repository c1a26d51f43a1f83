// Package catalog provides the upload-and-catalog core of the short-video
// media catalog: validation of multipart file submissions, persistence of the
// thumbnail and video assets through a pluggable AssetStore, and recording of
// the resulting catalog Entry through a pluggable Repository.
//
// The Service interface exposes two write operations that orchestrate the
// whole flow (CreateUpload and UpdateUpload) and a thin read side
// (GetEntry, ListEntries, SearchEntries, DeleteEntry). Implementations of
// repositories (memory, Postgres) and asset stores (memory, filesystem, S3,
// MinIO) are provided under subpackages.
//
// Partial failures
//
// Files are persisted one at a time before the catalog write. When a store
// fails midway the operation returns ErrPartialUploadFailure and the files
// already stored are left in place unless the service was built with
// WithOrphanCleanup. The refs involved are reported on UploadError.
package catalog
