// Package state defines the ledger states of the application: the option
// contracts, the IOU obligations they settle into, and the cash used to pay
// them off.
package state

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"golang.org/x/xerrors"
)

// IOU is the ledger state of an obligation: the borrower owes the amount to
// the lender, of which the paid part has already been settled.
//
// - implements tx.LinearState
type IOU struct {
	Amount   finance.Amount
	Lender   identity.Party
	Borrower identity.Party
	Paid     finance.Amount
	LinearID uuid.UUID
}

// NewIOU creates an obligation with a fresh linear identifier and nothing
// paid yet.
func NewIOU(amount finance.Amount, lender, borrower identity.Party) IOU {
	return IOU{
		Amount:   amount,
		Lender:   lender,
		Borrower: borrower,
		Paid:     finance.Zero(amount.Currency),
		LinearID: uuid.New(),
	}
}

// GetLinearID implements tx.LinearState.
func (iou IOU) GetLinearID() uuid.UUID {
	return iou.LinearID
}

// Outstanding returns the amount still owed.
func (iou IOU) Outstanding() finance.Amount {
	return iou.Amount.Sub(iou.Paid)
}

// Pay returns a copy of the state with the paid amount increased. No
// validation is performed; the settle rules do that.
func (iou IOU) Pay(amount finance.Amount) IOU {
	iou.Paid = iou.Paid.Add(amount)
	return iou
}

// WithNewLender returns a copy of the state owed to the new lender. Used
// when transferring the obligation.
func (iou IOU) WithNewLender(newLender identity.Party) IOU {
	iou.Lender = newLender
	return iou
}

// SameTerms returns true when both states agree on every field except the
// lender. The transfer rules rely on it.
func (iou IOU) SameTerms(other IOU) bool {
	return iou.Amount == other.Amount &&
		iou.Paid == other.Paid &&
		iou.Borrower.Equal(other.Borrower) &&
		iou.LinearID == other.LinearID
}

// Fingerprint implements tx.Fingerprinter. It writes a deterministic binary
// representation of the state.
func (iou IOU) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 16)
	binary.LittleEndian.PutUint64(buffer[:8], uint64(iou.Amount.Quantity))
	binary.LittleEndian.PutUint64(buffer[8:], uint64(iou.Paid.Quantity))

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write amounts: %v", err)
	}

	_, err = io.WriteString(w, iou.Amount.Currency)
	if err != nil {
		return xerrors.Errorf("couldn't write currency: %v", err)
	}

	err = iou.Lender.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint lender: %v", err)
	}

	err = iou.Borrower.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint borrower: %v", err)
	}

	_, err = w.Write(iou.LinearID[:])
	if err != nil {
		return xerrors.Errorf("couldn't write linear id: %v", err)
	}

	return nil
}

// String implements fmt.Stringer. It returns a short description of the
// obligation.
func (iou IOU) String() string {
	return fmt.Sprintf("IOU(%s): %s owes %s %v and has paid %v so far",
		iou.LinearID, iou.Borrower, iou.Lender, iou.Amount, iou.Paid)
}
