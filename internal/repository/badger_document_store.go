package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"starkeys-go/internal/model"
	"starkeys-go/pkg/log"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const paperKeyPrefix = "paper_json:"

// badgerDocumentStore 是 DocumentStore 接口的 BadgerDB 实现，键的字节序即 ID 升序。
type badgerDocumentStore struct {
	db *badger.DB
}

// badgerLoggerAdapter 将 badger 的日志转到全局 zap logger。
type badgerLoggerAdapter struct{}

var _ badger.Logger = badgerLoggerAdapter{}

func (badgerLoggerAdapter) Errorf(msg string, items ...any)   { log.Errorf("[badger] "+msg, items...) }
func (badgerLoggerAdapter) Warningf(msg string, items ...any) { log.Warnf("[badger] "+msg, items...) }
func (badgerLoggerAdapter) Infof(msg string, items ...any)    { log.Debugf("[badger] "+msg, items...) }
func (badgerLoggerAdapter) Debugf(msg string, items ...any)   { log.Debugf("[badger] "+msg, items...) }

// OpenBadgerDocumentStore 打开指定目录下的 BadgerDB，目录不存在时创建。
func OpenBadgerDocumentStore(path string) (DocumentStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = badgerLoggerAdapter{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &badgerDocumentStore{db: db}, nil
}

// BadgerConnector 返回重新打开同一目录的 Connector。
func BadgerConnector(path string) Connector {
	return func(context.Context) (DocumentStore, error) {
		return OpenBadgerDocumentStore(path)
	}
}

func paperKey(id string) []byte {
	return []byte(paperKeyPrefix + id)
}

func (s *badgerDocumentStore) Upsert(ctx context.Context, doc *model.RawDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(paperKey(doc.ID), value)
	})
}

func (s *badgerDocumentStore) Scan(ctx context.Context, after string, limit int) ([]model.RawDocument, error) {
	var docs []model.RawDocument
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(paperKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		afterKey := paperKey(after)
		for it.Seek(afterKey); it.Valid() && len(docs) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if after != "" && bytes.Equal(item.Key(), afterKey) {
				continue
			}
			var doc model.RawDocument
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func (s *badgerDocumentStore) Count(context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(paperKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *badgerDocumentStore) Close() error {
	return s.db.Close()
}
