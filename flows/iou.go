package flows

import (
	"github.com/google/uuid"
	"go.dedis.ch/opal/contracts/iou"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/core/vault"
	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// TransferIOU re-assigns the lender of the obligation with the given
// identifier.
func TransferIOU(srvcs Services, id uuid.UUID, newLender identity.Party,
	borrowerSigner, lenderSigner, newLenderSigner crypto.Signer) (vault.StateAndRef, error) {

	logger := flowLogger("transfer-iou")

	ref, err := srvcs.Vault.ByLinearID(id)
	if err != nil {
		return vault.StateAndRef{}, xerrors.Errorf("couldn't fetch the obligation: %v", err)
	}

	input, ok := ref.State.(state.IOU)
	if !ok {
		return vault.StateAndRef{}, xerrors.Errorf("state '%v' is not an obligation", id)
	}

	proposal := tx.Transaction{
		Inputs:  []tx.State{input},
		Outputs: []tx.State{input.WithNewLender(newLender)},
		Commands: []tx.Command{{
			Value: iou.Transfer{},
			Signers: []crypto.PublicKey{
				borrowerSigner.GetPublicKey(),
				lenderSigner.GetPublicKey(),
				newLenderSigner.GetPublicKey(),
			},
		}},
	}

	created, err := finalize(srvcs, logger, proposal,
		[]vault.StateAndRef{ref},
		[]crypto.Signer{borrowerSigner, lenderSigner, newLenderSigner})
	if err != nil {
		return vault.StateAndRef{}, err
	}

	return created[0], nil
}

// SettleIOU pays the given amount of the obligation with the borrower's
// cash. The borrower's unconsumed cash is selected to cover the amount; the
// excess comes back as change. Settling the full outstanding amount ends the
// obligation.
func SettleIOU(srvcs Services, id uuid.UUID, amount finance.Amount,
	lenderSigner, borrowerSigner crypto.Signer) ([]vault.StateAndRef, error) {

	logger := flowLogger("settle-iou")

	ref, err := srvcs.Vault.ByLinearID(id)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fetch the obligation: %v", err)
	}

	input, ok := ref.State.(state.IOU)
	if !ok {
		return nil, xerrors.Errorf("state '%v' is not an obligation", id)
	}

	selected, sum, err := selectCash(srvcs.Vault, input.Borrower, amount)
	if err != nil {
		return nil, err
	}

	consumed := append([]vault.StateAndRef{ref}, selected...)

	inputs := []tx.State{input}
	for _, cash := range selected {
		inputs = append(inputs, cash.State)
	}

	outputs := []tx.State{state.NewCash(amount, input.Lender)}

	change := sum.Sub(amount)
	if change.IsPositive() {
		outputs = append(outputs, state.NewCash(change, input.Borrower))
	}

	if amount.Cmp(input.Outstanding()) < 0 {
		outputs = append(outputs, input.Pay(amount))
	}

	proposal := tx.Transaction{
		Inputs:  inputs,
		Outputs: outputs,
		Commands: []tx.Command{{
			Value: iou.Settle{},
			Signers: []crypto.PublicKey{
				lenderSigner.GetPublicKey(),
				borrowerSigner.GetPublicKey(),
			},
		}},
	}

	return finalize(srvcs, logger, proposal, consumed,
		[]crypto.Signer{lenderSigner, borrowerSigner})
}

// selectCash picks unconsumed cash states of the owner until the amount is
// covered.
func selectCash(v *vault.Vault, owner identity.Party,
	amount finance.Amount) ([]vault.StateAndRef, finance.Amount, error) {

	var selected []vault.StateAndRef

	sum := finance.Zero(amount.Currency)

	for _, ref := range v.Unconsumed() {
		cash, ok := ref.State.(state.Cash)
		if !ok || !cash.Owner.Equal(owner) {
			continue
		}

		if !cash.Amount.SameCurrency(amount) {
			continue
		}

		selected = append(selected, ref)
		sum = sum.Add(cash.Amount)

		if sum.Cmp(amount) >= 0 {
			return selected, sum, nil
		}
	}

	return nil, finance.Amount{}, xerrors.Errorf(
		"insufficient cash: %v available, %v needed", sum, amount)
}
