package catalog

import (
	"context"
	"io"

	"vectortube/internal/storage"
)

// RecordStore persists catalog records. Read and Delete return (nil, nil)
// when no record has the given id.
type RecordStore interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Read(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) (*Record, error)
	Close() error
}

// AssetStore holds thumbnail bytes under refs relative to its root. Delete of
// a missing ref succeeds.
type AssetStore interface {
	Put(ctx context.Context, ref string, r io.Reader) error
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
	List(ctx context.Context) ([]storage.Asset, error)
}

var _ AssetStore = (*storage.FSAssetStore)(nil)

var (
	_ RecordStore = (*MemoryRecordStore)(nil)
	_ RecordStore = (*SQLiteRecordStore)(nil)
	_ RecordStore = (*PostgresRecordStore)(nil)
	_ RecordStore = (*EtcdRecordStore)(nil)
)
