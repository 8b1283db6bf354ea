package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// multipartThreshold is the payload size above which archive uploads switch
// from a single PutObject to a multipart upload.
const multipartThreshold = 64 * 1024 * 1024

// archivePartSize is the part size used for multipart archive uploads.
const archivePartSize int64 = 16 * 1024 * 1024

// ListingArchiveStore is the slice of the listing store the archiver needs:
// time-ranged reads plus the delete that completes the move to cold storage.
type ListingArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.ListingRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver by serializing aged listings to
// JSONL, uploading them to object storage, and only then deleting them from
// the primary store. Corpus snapshots are uploaded as a single JSON document
// so a restarted instance can rebuild its exemplar bins without replaying
// every comp.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	store  ListingArchiveStore
	now    func() time.Time

	multipartThreshold int
}

// NewArchiver creates an ArchiveImpl. reader may be nil, in which case
// snapshot overwrite detection is disabled.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, store ListingArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:             writer,
		reader:             reader,
		store:              store,
		now:                time.Now,
		multipartThreshold: multipartThreshold,
	}
}

// ArchiveListings moves every listing listed before the cutoff to cold
// storage at listings/YYYY-MM.jsonl and deletes it from the primary store.
// The upload happens first: a failed upload leaves the rows in place. Large
// batches go up as a multipart upload.
func (a *ArchiveImpl) ArchiveListings(ctx context.Context, before time.Time) (int64, error) {
	listings, err := a.store.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings query: %w", err)
	}
	if len(listings) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(listings)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings marshal: %w", err)
	}

	path := archivePath("listings", before)
	if len(buf) >= a.multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), archivePartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings upload: %w", err)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings delete: %w", err)
	}
	return deleted, nil
}

// SnapshotCorpus uploads the full comp corpus as one timestamped JSON document
// under corpus/ and returns the object path. Snapshot objects are immutable:
// when a reader is configured and the path is already taken, SnapshotCorpus
// refuses to overwrite it and returns domain.ErrAlreadyExists.
func (a *ArchiveImpl) SnapshotCorpus(ctx context.Context, groups []domain.ComparableGroup) (string, error) {
	data, err := json.Marshal(groups)
	if err != nil {
		return "", fmt.Errorf("s3blob: snapshot corpus marshal: %w", err)
	}

	path := fmt.Sprintf("corpus/%s.json", a.now().UTC().Format("2006-01-02T15-04-05Z"))
	if a.reader != nil {
		taken, err := a.reader.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("s3blob: snapshot corpus check %s: %w", path, err)
		}
		if taken {
			return "", fmt.Errorf("s3blob: snapshot corpus %s: %w", path, domain.ErrAlreadyExists)
		}
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: snapshot corpus upload: %w", err)
	}
	return path, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	listings/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON. Each
// element is one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
