// Package pebble provides a pebble-backed audit sink for authorization
// decisions.
package pebble

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/gofrs/uuid/v5"

	"github.com/acrine/authstack"
)

const decisionPrefix = "decision/"

// An AuditStore appends decision records to a pebble database, keyed by
// decision ID. It implements [authstack.Recorder].
type AuditStore struct {
	db *pebble.DB
}

func NewAuditStore(dirname string) (*AuditStore, error) {
	db, err := pebble.Open(dirname, &pebble.Options{})
	return &AuditStore{db}, err
}

func (s *AuditStore) Close() error {
	return s.db.Close()
}

func (s *AuditStore) Record(ctx context.Context, d authstack.Decision) error {
	value, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Set(decisionKey(d.ID), value, pebble.Sync)
}

// ReadDecision looks a recorded decision up by its ID.
func (s *AuditStore) ReadDecision(ctx context.Context, id uuid.UUID) (authstack.Decision, error) {
	d := authstack.Decision{}
	value, closer, err := s.db.Get(decisionKey(id))
	if err == pebble.ErrNotFound {
		return d, authstack.ErrNotFound
	} else if err != nil {
		return d, err
	}
	err = json.Unmarshal(value, &d)
	closer.Close()
	return d, err
}

// Decisions returns up to limit recorded decisions in key order. Decision
// IDs are UUIDv7, so key order is creation order.
func (s *AuditStore) Decisions(ctx context.Context, limit int) ([]authstack.Decision, error) {
	prefix := []byte(decisionPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: append(append([]byte{}, prefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}

	decisions := []authstack.Decision{}
	for iter.First(); iter.Valid() && len(decisions) < limit; iter.Next() {
		var d authstack.Decision
		if err := json.Unmarshal(iter.Value(), &d); err != nil {
			iter.Close()
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return decisions, nil
}

func decisionKey(id uuid.UUID) []byte {
	return []byte(decisionPrefix + id.String())
}
