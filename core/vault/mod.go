// Package vault tracks the unconsumed states of the demo ledger. Consensus
// and double-spend prevention across nodes belong to the surrounding
// platform, but the flow drivers and the tests need a local bookkeeper that
// hands out state references, serves the current version of a linear state
// and refuses to consume a reference twice.
//
// The current states live in memory; the consumed references are journaled
// in a bbolt database so that a restarted demo node cannot replay them.
package vault

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"go.dedis.ch/opal/core/tx"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var consumedBucket = []byte("consumed")

// StateAndRef is a state together with the unique reference assigned when it
// was stored.
type StateAndRef struct {
	Ref   xid.ID
	State tx.State
}

// Vault is the local bookkeeper of unconsumed states.
type Vault struct {
	sync.Mutex

	db      *bbolt.DB
	current map[xid.ID]StateAndRef
	watcher *watcher
}

// New opens the journal at the given path and returns an empty vault.
func New(path string) (*Vault, error) {
	db, err := bbolt.Open(path, 0666, &bbolt.Options{})
	if err != nil {
		return nil, xerrors.Errorf("failed to open journal: %v", err)
	}

	err = db.Update(func(txn *bbolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists(consumedBucket)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}

	vault := &Vault{
		db:      db,
		current: map[xid.ID]StateAndRef{},
		watcher: newWatcher(),
	}

	return vault, nil
}

// Watch registers the observer to be notified of every vault update until it
// is removed with Unwatch.
func (v *Vault) Watch(observer Observer) {
	v.watcher.Add(observer)
}

// Unwatch removes the observer.
func (v *Vault) Unwatch(observer Observer) {
	v.watcher.Remove(observer)
}

// Close closes the journal.
func (v *Vault) Close() error {
	return v.db.Close()
}

// Store records new states without consuming anything, for instance when
// self-issuing cash. It returns the assigned references.
func (v *Vault) Store(states ...tx.State) []StateAndRef {
	v.Lock()
	refs := v.store(states)
	v.Unlock()

	v.watcher.Notify(Update{Created: refs})

	return refs
}

// Record consumes the given references and stores the created states as one
// step. It fails when a reference is unknown or already consumed, in which
// case nothing is changed.
func (v *Vault) Record(consumed []StateAndRef, created []tx.State) ([]StateAndRef, error) {
	v.Lock()

	refs, err := v.record(consumed, created)

	v.Unlock()

	if err != nil {
		return nil, err
	}

	v.watcher.Notify(Update{Consumed: consumed, Created: refs})

	return refs, nil
}

func (v *Vault) record(consumed []StateAndRef, created []tx.State) ([]StateAndRef, error) {
	for _, ref := range consumed {
		_, ok := v.current[ref.Ref]
		if !ok {
			return nil, xerrors.Errorf("state '%v' is not current", ref.Ref)
		}
	}

	err := v.db.Update(func(txn *bbolt.Tx) error {
		bucket := txn.Bucket(consumedBucket)

		for _, ref := range consumed {
			if bucket.Get(ref.Ref.Bytes()) != nil {
				return xerrors.Errorf("state '%v' already consumed", ref.Ref)
			}

			err := bucket.Put(ref.Ref.Bytes(), []byte{1})
			if err != nil {
				return xerrors.Errorf("failed to journal: %v", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ref := range consumed {
		delete(v.current, ref.Ref)
	}

	return v.store(created), nil
}

// ByLinearID returns the current version of the linear state with the given
// identifier.
func (v *Vault) ByLinearID(id uuid.UUID) (StateAndRef, error) {
	v.Lock()
	defer v.Unlock()

	for _, ref := range v.current {
		linear, ok := ref.State.(tx.LinearState)
		if ok && linear.GetLinearID() == id {
			return ref, nil
		}
	}

	return StateAndRef{}, xerrors.Errorf("no current state for id '%v'", id)
}

// Unconsumed returns all the current states.
func (v *Vault) Unconsumed() []StateAndRef {
	v.Lock()
	defer v.Unlock()

	res := make([]StateAndRef, 0, len(v.current))
	for _, ref := range v.current {
		res = append(res, ref)
	}

	return res
}

func (v *Vault) store(states []tx.State) []StateAndRef {
	refs := make([]StateAndRef, len(states))

	for i, state := range states {
		ref := StateAndRef{Ref: xid.New(), State: state}
		v.current[ref.Ref] = ref
		refs[i] = ref
	}

	return refs
}
