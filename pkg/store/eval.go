package store

import (
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
	. "src.nixrepl.dev/pkg/store/storedefs"
)

const bucketEval = "eval"

func init() {
	initDB["initialize evaluation history table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEval))
		return err
	}
}

// NextEvalSeq returns the next sequence number of the evaluation history.
func (s *dbStore) NextEvalSeq() (int, error) {
	var seq uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEval))
		seq = b.Sequence() + 1
		return nil
	})
	return int(seq), err
}

// AddEval adds a new evaluation to the history and returns its sequence
// number. The Seq field of e is ignored.
func (s *dbStore) AddEval(e Eval) (int, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEval))
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), value)
	})
	return int(seq), err
}

// Eval queries the evaluation with the specified sequence number.
func (s *dbStore) Eval(seq int) (Eval, error) {
	var e Eval
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEval))
		v := b.Get(marshalSeq(uint64(seq)))
		if v == nil {
			return ErrNoMatchingEval
		}
		return unmarshalEval(seq, v, &e)
	})
	return e, err
}

// Evals returns all evaluations with sequence numbers in [from, upto).
func (s *dbStore) Evals(from, upto int) ([]Eval, error) {
	var evals []Eval
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketEval)).Cursor()
		for k, v := c.Seek(marshalSeq(uint64(from))); k != nil && unmarshalSeq(k) < uint64(upto); k, v = c.Next() {
			var e Eval
			if err := unmarshalEval(int(unmarshalSeq(k)), v, &e); err != nil {
				return err
			}
			evals = append(evals, e)
		}
		return nil
	})
	return evals, err
}

func unmarshalEval(seq int, v []byte, e *Eval) error {
	if err := json.Unmarshal(v, e); err != nil {
		return err
	}
	e.Seq = seq
	return nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
