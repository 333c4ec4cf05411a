package option

import (
	"encoding/binary"
	"io"

	"go.dedis.ch/opal/core/finance"
	"golang.org/x/xerrors"
)

// Issue is the command to create a new option state on the ledger.
//
// - implements tx.CommandData
type Issue struct{}

// Fingerprint implements tx.Fingerprinter.
func (Issue) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "option:issue")
	return err
}

// Trade is the command to re-assign the owner of an option.
//
// - implements tx.CommandData
type Trade struct{}

// Fingerprint implements tx.Fingerprinter.
func (Trade) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "option:trade")
	return err
}

// Exercise is the command to exercise an option. It embeds the spot price
// observed by the oracle, so that the oracle can attest to it by co-signing
// the transaction.
//
// - implements tx.CommandData
type Exercise struct {
	Spot finance.SpotPrice
}

// Fingerprint implements tx.Fingerprinter. It writes the command tag
// followed by the embedded observation.
func (e Exercise) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "option:exercise")
	if err != nil {
		return xerrors.Errorf("couldn't write tag: %v", err)
	}

	_, err = io.WriteString(w, e.Spot.Stock.Name)
	if err != nil {
		return xerrors.Errorf("couldn't write stock: %v", err)
	}

	buffer := make([]byte, 16)
	binary.LittleEndian.PutUint64(buffer[:8], uint64(e.Spot.Stock.AtTime.UnixNano()))
	binary.LittleEndian.PutUint64(buffer[8:], uint64(e.Spot.Value.Quantity))

	_, err = w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write observation: %v", err)
	}

	_, err = io.WriteString(w, e.Spot.Value.Currency)
	if err != nil {
		return xerrors.Errorf("couldn't write currency: %v", err)
	}

	return nil
}
