package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var schemaBucket = []byte("_schema")

type boltPersister struct {
	db *bolt.DB
}

func openBolt(path string) (*boltPersister, error) {
	if path == "" {
		return nil, fmt.Errorf("the %s engine needs a path", EngineBolt)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(schemaBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize %s: %w", path, err)
	}
	return &boltPersister{db: db}, nil
}

func (p *boltPersister) load() ([]*relation, error) {
	var relations []*relation
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(schemaBucket).ForEach(func(_, v []byte) error {
			var schema Schema
			if err := json.Unmarshal(v, &schema); err != nil {
				return fmt.Errorf("corrupt schema: %w", err)
			}
			r := newRelation(schema)
			b := tx.Bucket([]byte(schema.Name))
			if b == nil {
				return fmt.Errorf("missing bucket for relation %q", schema.Name)
			}
			err := b.ForEach(func(k, v []byte) error {
				var row map[string]any
				if err := json.Unmarshal(v, &row); err != nil {
					return fmt.Errorf("corrupt row %s in %q: %w", k, schema.Name, err)
				}
				r.rows[string(k)] = row
				return nil
			})
			if err != nil {
				return err
			}
			relations = append(relations, r)
			return nil
		})
	})
	return relations, err
}

func (p *boltPersister) createRelation(schema Schema) error {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucket([]byte(schema.Name)); err != nil {
			return err
		}
		return tx.Bucket(schemaBucket).Put([]byte(schema.Name), encoded)
	})
}

func (p *boltPersister) apply(schema Schema, c change) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(schema.Name))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNoRelation, schema.Name)
		}
		for k, row := range c.puts {
			encoded, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(k), encoded); err != nil {
				return err
			}
		}
		for _, k := range c.removes {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *boltPersister) Close() error {
	return p.db.Close()
}
