package state

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"golang.org/x/xerrors"
)

// Cash is a fungible amount owned by a party. It is the settlement
// instrument of the IOU contract.
//
// - implements tx.State
type Cash struct {
	Amount finance.Amount
	Owner  identity.Party
}

// NewCash creates a cash state.
func NewCash(amount finance.Amount, owner identity.Party) Cash {
	return Cash{Amount: amount, Owner: owner}
}

// WithNewOwner returns a copy of the state owned by the new party.
func (c Cash) WithNewOwner(newOwner identity.Party) Cash {
	c.Owner = newOwner
	return c
}

// Fingerprint implements tx.Fingerprinter. It writes a deterministic binary
// representation of the state.
func (c Cash) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, uint64(c.Amount.Quantity))

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write amount: %v", err)
	}

	_, err = io.WriteString(w, c.Amount.Currency)
	if err != nil {
		return xerrors.Errorf("couldn't write currency: %v", err)
	}

	err = c.Owner.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint owner: %v", err)
	}

	return nil
}

// String implements fmt.Stringer.
func (c Cash) String() string {
	return fmt.Sprintf("%v owned by %s", c.Amount, c.Owner)
}
