// Package option implements the contract of the option states. It validates
// the three transitions of the lifecycle: Issue creates an option, Trade
// re-assigns its owner, Exercise consumes the right and emits the matching
// obligation.
package option

import (
	"go.dedis.ch/opal/contracts"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/crypto"
)

// ContractName is the name of the contract.
const ContractName = "opal.Option"

// RegisterContract registers the option contract to the given registry.
func RegisterContract(reg *contracts.Registry, c Contract) {
	reg.Set(ContractName, c)
}

// Contract is the rule set of the option states.
//
// - implements contracts.Contract
type Contract struct {
	// oracleKey is the public key that must co-sign every exercise command,
	// so that the embedded spot price is backed by the oracle's attestation.
	oracleKey crypto.PublicKey
}

// NewContract creates an option contract trusting the given oracle key.
func NewContract(oracleKey crypto.PublicKey) Contract {
	return Contract{oracleKey: oracleKey}
}

// Concerned implements contracts.Contract. It returns true when the
// transaction carries at least one option command.
func (c Contract) Concerned(t tx.Transaction) bool {
	return len(commandsOf(t)) > 0
}

// Verify implements contracts.Contract. It expects exactly one option
// command and validates the corresponding transition.
func (c Contract) Verify(t tx.Transaction) error {
	cmds := commandsOf(t)

	err := contracts.Require(len(cmds) == 1,
		"there must be exactly one option command")
	if err != nil {
		return err
	}

	cmd := cmds[0]

	switch value := cmd.Value.(type) {
	case Issue:
		return c.verifyIssue(t, cmd)
	case Trade:
		return c.verifyTrade(t, cmd)
	case Exercise:
		return c.verifyExercise(t, cmd, value)
	default:
		// commandsOf only selects the three known commands.
		panic("unreachable command")
	}
}

func (c Contract) verifyIssue(t tx.Transaction, cmd tx.Command) error {
	err := contracts.Require(len(optionStates(t.Inputs)) == 0,
		"an option issuance must not consume an option")
	if err != nil {
		return err
	}

	outputs := optionStates(t.Outputs)

	err = contracts.Require(len(outputs) == 1,
		"there must be exactly one option output")
	if err != nil {
		return err
	}

	output := outputs[0]

	err = contracts.Require(t.Window.HasUntil(),
		"an option issuance must be timestamped")
	if err != nil {
		return err
	}

	err = contracts.Require(output.StrikePrice.IsPositive(),
		"the strike price must be positive")
	if err != nil {
		return err
	}

	err = contracts.Require(output.Currency == output.StrikePrice.Currency,
		"the option currency must match the strike currency")
	if err != nil {
		return err
	}

	err = contracts.Require(t.Window.Until.Before(output.ExpiryDate),
		"the expiry date must not be in the past")
	if err != nil {
		return err
	}

	err = contracts.Require(!output.Issuer.Equal(output.Owner),
		"the issuer and the owner must be different parties")
	if err != nil {
		return err
	}

	err = contracts.Require(cmd.IsSignedBy(output.Issuer.Key),
		"the issue transaction must be signed by the issuer")
	if err != nil {
		return err
	}

	return contracts.Require(cmd.IsSignedBy(output.Owner.Key),
		"the issue transaction must be signed by the owner")
}

func (c Contract) verifyTrade(t tx.Transaction, cmd tx.Command) error {
	inputs := optionStates(t.Inputs)

	err := contracts.Require(len(inputs) == 1,
		"there must be exactly one option input")
	if err != nil {
		return err
	}

	outputs := optionStates(t.Outputs)

	err = contracts.Require(len(outputs) == 1,
		"there must be exactly one option output")
	if err != nil {
		return err
	}

	input, output := inputs[0], outputs[0]

	err = contracts.Require(input.LinearID == output.LinearID,
		"the input and the output must share the linear id")
	if err != nil {
		return err
	}

	err = contracts.Require(!input.Exercised,
		"an exercised option cannot be traded")
	if err != nil {
		return err
	}

	err = contracts.Require(input.SameTerms(output),
		"only the owner may change in a trade")
	if err != nil {
		return err
	}

	err = contracts.Require(!input.Owner.Equal(output.Owner),
		"the owner must change in a trade")
	if err != nil {
		return err
	}

	err = contracts.Require(cmd.IsSignedBy(input.Issuer.Key),
		"the trade must be signed by the issuer")
	if err != nil {
		return err
	}

	err = contracts.Require(cmd.IsSignedBy(input.Owner.Key),
		"the trade must be signed by the current owner")
	if err != nil {
		return err
	}

	return contracts.Require(cmd.IsSignedBy(output.Owner.Key),
		"the trade must be signed by the new owner")
}

func (c Contract) verifyExercise(t tx.Transaction, cmd tx.Command, value Exercise) error {
	inputs := optionStates(t.Inputs)

	err := contracts.Require(len(inputs) == 1,
		"there must be exactly one option input")
	if err != nil {
		return err
	}

	input := inputs[0]

	err = contracts.Require(t.Window.HasFrom(),
		"an option exercise must be timestamped")
	if err != nil {
		return err
	}

	err = contracts.Require(!t.Window.From.After(input.ExpiryDate),
		"the option must be exercised before maturity")
	if err != nil {
		return err
	}

	err = contracts.Require(!input.Exercised,
		"the option must not already be exercised")
	if err != nil {
		return err
	}

	err = contracts.Require(value.Spot.Stock.Name == input.UnderlyingStock,
		"the observed spot must be for the underlying stock")
	if err != nil {
		return err
	}

	err = contracts.Require(value.Spot.Value.Currency == input.StrikePrice.Currency,
		"the observed spot must be in the option currency")
	if err != nil {
		return err
	}

	outputs := optionStates(t.Outputs)

	err = contracts.Require(len(outputs) == 1,
		"there must be exactly one option output")
	if err != nil {
		return err
	}

	output := outputs[0]

	err = contracts.Require(output.Exercised,
		"the option output must be marked as exercised")
	if err != nil {
		return err
	}

	expected := input.Exercise(value.Spot.Value, output.ExercisedOnDate)

	err = contracts.Require(
		output.SameTerms(expected) && output.Owner.Equal(expected.Owner),
		"only the exercised flag and the spot may change")
	if err != nil {
		return err
	}

	ious := iouStates(t.Outputs)

	err = contracts.Require(len(ious) == 1,
		"there must be exactly one obligation output")
	if err != nil {
		return err
	}

	iou := ious[0]
	moneyness := finance.Moneyness(input.StrikePrice, value.Spot.Value, input.OptionType)

	err = contracts.Require(iou.Amount == moneyness,
		"the obligation amount must equal the option moneyness")
	if err != nil {
		return err
	}

	err = contracts.Require(
		iou.Lender.Equal(input.Owner) && iou.Borrower.Equal(input.Issuer),
		"the obligation must be owed by the issuer to the owner")
	if err != nil {
		return err
	}

	err = contracts.Require(cmd.IsSignedBy(input.Owner.Key),
		"the exercise must be signed by the current owner")
	if err != nil {
		return err
	}

	return contracts.Require(cmd.IsSignedBy(c.oracleKey),
		"the exercise must name the oracle as a signer")
}

// commandsOf returns the option commands of the transaction.
func commandsOf(t tx.Transaction) []tx.Command {
	var cmds []tx.Command

	for _, cmd := range t.Commands {
		switch cmd.Value.(type) {
		case Issue, Trade, Exercise:
			cmds = append(cmds, cmd)
		}
	}

	return cmds
}

func optionStates(states []tx.State) []state.Option {
	var res []state.Option

	for _, st := range states {
		option, ok := st.(state.Option)
		if ok {
			res = append(res, option)
		}
	}

	return res
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
