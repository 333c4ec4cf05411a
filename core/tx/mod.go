// Package tx defines the view of a transaction proposal that the contract
// validators and the oracle operate on: typed input and output states, the
// commands with their required signers, and an optional time window.
//
// The view is deliberately passive. Building, ordering and storing
// transactions is the responsibility of the surrounding platform; the types
// here only expose what the deterministic rule checking needs, plus a
// fingerprint of every component so that a commitment can be computed.
package tx

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/google/uuid"
	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// Fingerprinter is implemented by every transaction component. The
// fingerprint is the deterministic byte representation used for hashing.
type Fingerprinter interface {
	Fingerprint(w io.Writer) error
}

// State is a fact tracked by the ledger. A transaction consumes input states
// and creates output states.
type State interface {
	Fingerprinter
}

// LinearState is a state that keeps a stable identifier across its revision
// history. Successive versions in an issue/amend chain share the identifier.
type LinearState interface {
	State

	GetLinearID() uuid.UUID
}

// CommandData is the payload of a command. Each contract defines its own
// closed set of command types.
type CommandData interface {
	Fingerprinter
}

// Command instructs a contract to validate a transition, and names the keys
// that must sign the transaction for it to be valid.
type Command struct {
	Value   CommandData
	Signers []crypto.PublicKey
}

// IsSignedBy returns true when the key appears in the required signers.
func (c Command) IsSignedBy(key crypto.PublicKey) bool {
	return crypto.ContainsKey(c.Signers, key)
}

// Fingerprint implements tx.Fingerprinter. It writes the payload fingerprint
// followed by the marshaled required signers.
func (c Command) Fingerprint(w io.Writer) error {
	err := c.Value.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint payload: %v", err)
	}

	for _, signer := range c.Signers {
		data, err := signer.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("couldn't marshal signer: %v", err)
		}

		_, err = w.Write(data)
		if err != nil {
			return xerrors.Errorf("couldn't write signer: %v", err)
		}
	}

	return nil
}

// TimeWindow is the validity window asserted for a transaction. A zero bound
// means the bound is not set.
type TimeWindow struct {
	From  time.Time
	Until time.Time
}

// WindowUntil returns a time window with only the upper bound set.
func WindowUntil(until time.Time) TimeWindow {
	return TimeWindow{Until: until}
}

// WindowFrom returns a time window with only the lower bound set.
func WindowFrom(from time.Time) TimeWindow {
	return TimeWindow{From: from}
}

// WindowBetween returns a time window with both bounds set.
func WindowBetween(from, until time.Time) TimeWindow {
	return TimeWindow{From: from, Until: until}
}

// HasFrom returns true when the lower bound is set.
func (w TimeWindow) HasFrom() bool {
	return !w.From.IsZero()
}

// HasUntil returns true when the upper bound is set.
func (w TimeWindow) HasUntil() bool {
	return !w.Until.IsZero()
}

// Fingerprint implements tx.Fingerprinter. It writes both bounds as unix
// nanoseconds, zero for an unset bound.
func (w TimeWindow) Fingerprint(out io.Writer) error {
	buffer := make([]byte, 16)

	if w.HasFrom() {
		binary.LittleEndian.PutUint64(buffer[:8], uint64(w.From.UnixNano()))
	}

	if w.HasUntil() {
		binary.LittleEndian.PutUint64(buffer[8:], uint64(w.Until.UnixNano()))
	}

	_, err := out.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write bounds: %v", err)
	}

	return nil
}

// Transaction is a proposal to consume the input states and create the
// output states, authorized by the commands.
type Transaction struct {
	Inputs   []State
	Outputs  []State
	Commands []Command
	Window   TimeWindow
}

// LinearInputs returns the input states sharing the given linear identifier.
func (t Transaction) LinearInputs(id uuid.UUID) []LinearState {
	return filterLinear(t.Inputs, id)
}

// LinearOutputs returns the output states sharing the given linear
// identifier.
func (t Transaction) LinearOutputs(id uuid.UUID) []LinearState {
	return filterLinear(t.Outputs, id)
}

func filterLinear(states []State, id uuid.UUID) []LinearState {
	var res []LinearState

	for _, state := range states {
		linear, ok := state.(LinearState)
		if ok && linear.GetLinearID() == id {
			res = append(res, linear)
		}
	}

	return res
}
