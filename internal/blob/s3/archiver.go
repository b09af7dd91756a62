package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"primeflip/internal/domain"
)

// SnapshotArchiveStore is the narrow slice of the snapshot store the
// archiver needs: time-ranged reads. Deletion of archived rows is a
// separate, explicit step executed after the upload has succeeded.
type SnapshotArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PartSnapshot, []domain.SetSnapshot, error)
}

// ArchiveImpl implements domain.Archiver: aged snapshot rows are
// serialized to JSONL and uploaded to S3, partitioned by year-month.
type ArchiveImpl struct {
	writer domain.BlobWriter
	snaps  SnapshotArchiveStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, snaps SnapshotArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{writer: writer, snaps: snaps}
}

// ArchiveSnapshots uploads all part and set snapshots older than the
// cutoff to archive/part_snapshots/YYYY-MM.jsonl and
// archive/set_snapshots/YYYY-MM.jsonl, returning the total row count.
// It does not delete anything from the primary store.
func (a *ArchiveImpl) ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error) {
	parts, sets, err := a.snaps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(parts) == 0 && len(sets) == 0 {
		return 0, nil
	}

	if len(parts) > 0 {
		if err := a.upload(ctx, "part_snapshots", before, parts); err != nil {
			return 0, err
		}
	}
	if len(sets) > 0 {
		if err := a.upload(ctx, "set_snapshots", before, sets); err != nil {
			return 0, err
		}
	}

	return int64(len(parts) + len(sets)), nil
}

func (a *ArchiveImpl) upload(ctx context.Context, kind string, before time.Time, records any) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := archivePath(kind, before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}
	return nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/part_snapshots/2026-08.jsonl
//	archive/set_snapshots/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice as newline-delimited JSON, one compact
// line per record.
func marshalJSONL(records any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	switch rs := records.(type) {
	case []domain.PartSnapshot:
		for i, r := range rs {
			if err := enc.Encode(r); err != nil {
				return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
			}
		}
	case []domain.SetSnapshot:
		for i, r := range rs {
			if err := enc.Encode(r); err != nil {
				return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("jsonl: unsupported record type %T", records)
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
