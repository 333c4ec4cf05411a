// Package identity defines the parties of the ledger. A party is a named
// holder of a public key; the key is the stable handle used for signer-set
// comparisons in the contract rules.
package identity

import (
	"io"

	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// Party is a participant of the ledger, identified by its public key.
type Party struct {
	Name string
	Key  crypto.PublicKey
}

// NewParty creates a party from a name and a public key.
func NewParty(name string, key crypto.PublicKey) Party {
	return Party{Name: name, Key: key}
}

// Equal returns true when the other party holds the same public key. The
// name is display-only and does not take part in the comparison.
func (p Party) Equal(other Party) bool {
	if p.Key == nil || other.Key == nil {
		return p.Key == nil && other.Key == nil
	}

	return p.Key.Equal(other.Key)
}

// Fingerprint writes a deterministic binary representation of the party into
// the writer.
func (p Party) Fingerprint(w io.Writer) error {
	_, err := w.Write([]byte(p.Name))
	if err != nil {
		return xerrors.Errorf("couldn't write name: %v", err)
	}

	if p.Key == nil {
		return nil
	}

	data, err := p.Key.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("couldn't marshal key: %v", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return xerrors.Errorf("couldn't write key: %v", err)
	}

	return nil
}

// String implements fmt.Stringer. It returns the name of the party.
func (p Party) String() string {
	return p.Name
}
