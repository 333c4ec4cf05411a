// Package iou implements the contract of the obligation states. It validates
// the three transitions of the lifecycle: Issue creates an obligation
// (typically as the counterpart of an option exercise), Transfer re-assigns
// the lender, Settle discharges the obligation with cash.
package iou

import (
	"io"

	"go.dedis.ch/opal/contracts"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/crypto"
)

// ContractName is the name of the contract.
const ContractName = "opal.IOU"

// Issue is the command to create a new obligation on the ledger.
//
// - implements tx.CommandData
type Issue struct{}

// Fingerprint implements tx.Fingerprinter.
func (Issue) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "iou:issue")
	return err
}

// Transfer is the command to re-assign the lender of an obligation.
//
// - implements tx.CommandData
type Transfer struct{}

// Fingerprint implements tx.Fingerprinter.
func (Transfer) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "iou:transfer")
	return err
}

// Settle is the command to pay off an obligation, fully or partially.
//
// - implements tx.CommandData
type Settle struct{}

// Fingerprint implements tx.Fingerprinter.
func (Settle) Fingerprint(w io.Writer) error {
	_, err := io.WriteString(w, "iou:settle")
	return err
}

// RegisterContract registers the obligation contract to the given registry.
func RegisterContract(reg *contracts.Registry, c Contract) {
	reg.Set(ContractName, c)
}

// Contract is the rule set of the obligation states.
//
// - implements contracts.Contract
type Contract struct{}

// NewContract creates an obligation contract.
func NewContract() Contract {
	return Contract{}
}

// Concerned implements contracts.Contract. It returns true when the
// transaction carries at least one obligation command.
func (c Contract) Concerned(t tx.Transaction) bool {
	return len(commandsOf(t)) > 0
}

// Verify implements contracts.Contract. It expects exactly one obligation
// command and validates the corresponding transition.
func (c Contract) Verify(t tx.Transaction) error {
	cmds := commandsOf(t)

	err := contracts.Require(len(cmds) == 1,
		"there must be exactly one obligation command")
	if err != nil {
		return err
	}

	cmd := cmds[0]

	switch cmd.Value.(type) {
	case Issue:
		return c.verifyIssue(t, cmd)
	case Transfer:
		return c.verifyTransfer(t, cmd)
	case Settle:
		return c.verifySettle(t, cmd)
	default:
		// commandsOf only selects the three known commands.
		panic("unreachable command")
	}
}

func (c Contract) verifyIssue(t tx.Transaction, cmd tx.Command) error {
	err := contracts.Require(len(iouStates(t.Inputs)) == 0,
		"an obligation issuance must not consume an obligation")
	if err != nil {
		return err
	}

	outputs := iouStates(t.Outputs)

	err = contracts.Require(len(outputs) == 1,
		"there must be exactly one obligation output")
	if err != nil {
		return err
	}

	iou := outputs[0]

	err = contracts.Require(iou.Amount.IsPositive(),
		"a newly issued obligation must have a positive amount")
	if err != nil {
		return err
	}

	err = contracts.Require(
		iou.Paid.IsZero() && iou.Paid.SameCurrency(iou.Amount),
		"a newly issued obligation must have nothing paid")
	if err != nil {
		return err
	}

	err = contracts.Require(!iou.Lender.Equal(iou.Borrower),
		"the lender and the borrower must be different parties")
	if err != nil {
		return err
	}

	return contracts.Require(
		crypto.SameKeySet(cmd.Signers, []crypto.PublicKey{iou.Lender.Key}),
		"only the lender must sign an obligation issuance")
}

func (c Contract) verifyTransfer(t tx.Transaction, cmd tx.Command) error {
	inputs := iouStates(t.Inputs)

	err := contracts.Require(len(inputs) == 1,
		"there must be exactly one obligation input")
	if err != nil {
		return err
	}

	outputs := iouStates(t.Outputs)

	err = contracts.Require(len(outputs) == 1,
		"there must be exactly one obligation output")
	if err != nil {
		return err
	}

	input, output := inputs[0], outputs[0]

	err = contracts.Require(input.LinearID == output.LinearID,
		"the input and the output must share the linear id")
	if err != nil {
		return err
	}

	err = contracts.Require(input.SameTerms(output),
		"only the lender may change in a transfer")
	if err != nil {
		return err
	}

	err = contracts.Require(!input.Lender.Equal(output.Lender),
		"the lender must change in a transfer")
	if err != nil {
		return err
	}

	expected := []crypto.PublicKey{
		input.Borrower.Key,
		input.Lender.Key,
		output.Lender.Key,
	}

	return contracts.Require(crypto.SameKeySet(cmd.Signers, expected),
		"the borrower, the old lender and the new lender only must sign a transfer")
}

func (c Contract) verifySettle(t tx.Transaction, cmd tx.Command) error {
	inputs := iouStates(t.Inputs)

	err := contracts.Require(len(inputs) == 1,
		"there must be exactly one obligation input")
	if err != nil {
		return err
	}

	input := inputs[0]
	outputs := iouStates(t.Outputs)

	for _, output := range outputs {
		err = contracts.Require(output.LinearID == input.LinearID,
			"every obligation output must share the input linear id")
		if err != nil {
			return err
		}
	}

	paid := cashPaidTo(t.Outputs, input.Lender)

	err = contracts.Require(len(paid) > 0,
		"there must be output cash paid to the lender")
	if err != nil {
		return err
	}

	sum := finance.Zero(input.Amount.Currency)

	for _, cash := range paid {
		err = contracts.Require(cash.Amount.SameCurrency(input.Amount),
			"the cash paid must be in the obligation currency")
		if err != nil {
			return err
		}

		sum = sum.Add(cash.Amount)
	}

	outstanding := input.Outstanding()

	err = contracts.Require(sum.Cmp(outstanding) <= 0,
		"the amount settled cannot be more than the amount outstanding")
	if err != nil {
		return err
	}

	if sum.Cmp(outstanding) == 0 {
		err = contracts.Require(len(outputs) == 0,
			"there must be no obligation output when fully settled")
		if err != nil {
			return err
		}
	} else {
		err = contracts.Require(len(outputs) == 1,
			"there must be one obligation output when partially settled")
		if err != nil {
			return err
		}

		output := outputs[0]

		err = contracts.Require(output.Amount == input.Amount,
			"the amount may not change when settling")
		if err != nil {
			return err
		}

		err = contracts.Require(output.Borrower.Equal(input.Borrower),
			"the borrower may not change when settling")
		if err != nil {
			return err
		}

		err = contracts.Require(output.Lender.Equal(input.Lender),
			"the lender may not change when settling")
		if err != nil {
			return err
		}

		err = contracts.Require(output.Paid == input.Paid.Add(sum),
			"the paid amount must increase by exactly the amount settled")
		if err != nil {
			return err
		}
	}

	expected := []crypto.PublicKey{input.Lender.Key, input.Borrower.Key}

	return contracts.Require(crypto.SameKeySet(cmd.Signers, expected),
		"the lender and the borrower together only must sign a settlement")
}

// commandsOf returns the obligation commands of the transaction.
func commandsOf(t tx.Transaction) []tx.Command {
	var cmds []tx.Command

	for _, cmd := range t.Commands {
		switch cmd.Value.(type) {
		case Issue, Transfer, Settle:
			cmds = append(cmds, cmd)
		}
	}

	return cmds
}

func iouStates(states []tx.State) []state.IOU {
	var res []state.IOU

	for _, st := range states {
		iou, ok := st.(state.IOU)
		if ok {
			res = append(res, iou)
		}
	}

	return res
}

func cashPaidTo(states []tx.State, owner identity.Party) []state.Cash {
	var res []state.Cash

	for _, st := range states {
		cash, ok := st.(state.Cash)
		if ok && cash.Owner.Equal(owner) {
			res = append(res, cash)
		}
	}

	return res
}
