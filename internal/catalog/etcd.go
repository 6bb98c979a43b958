package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const etcdDialTimeout = 5 * time.Second

// EtcdRecordStore keeps each record as a JSON document under
// <prefix>/videos/<id>.
type EtcdRecordStore struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdRecordStore(endpoints []string, prefix string, log *zap.Logger) (*EtcdRecordStore, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no etcd endpoints given")
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: etcdDialTimeout,
		Logger:      log.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "/vectortube"
	}
	return &EtcdRecordStore{client: client, prefix: prefix + "/videos/"}, nil
}

func (s *EtcdRecordStore) key(id string) string {
	return s.prefix + id
}

func (s *EtcdRecordStore) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = NewID()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	doc, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode video: %w", err)
	}

	key := s.key(rec.ID)
	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(doc))).
		Commit()
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert video: %w", err)
	}
	if !resp.Succeeded {
		return Record{}, fmt.Errorf("video %s already exists", rec.ID)
	}
	return rec, nil
}

func (s *EtcdRecordStore) Read(ctx context.Context, id string) (*Record, error) {
	resp, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read video: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return decodeRecord(resp.Kvs[0].Value)
}

func (s *EtcdRecordStore) List(ctx context.Context) ([]Record, error) {
	resp, err := s.client.Get(ctx, s.prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortAscend),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}

	recs := make([]Record, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		rec, err := decodeRecord(kv.Value)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (s *EtcdRecordStore) Delete(ctx context.Context, id string) (*Record, error) {
	resp, err := s.client.Delete(ctx, s.key(id), clientv3.WithPrevKV())
	if err != nil {
		return nil, fmt.Errorf("failed to delete video: %w", err)
	}
	if len(resp.PrevKvs) == 0 {
		return nil, nil
	}
	return decodeRecord(resp.PrevKvs[0].Value)
}

func (s *EtcdRecordStore) Close() error {
	return s.client.Close()
}

func decodeRecord(doc []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode video: %w", err)
	}
	return &rec, nil
}
