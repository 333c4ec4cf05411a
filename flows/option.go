package flows

import (
	"time"

	"github.com/google/uuid"
	"go.dedis.ch/opal/contracts/iou"
	"go.dedis.ch/opal/contracts/option"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/core/tx/mtree"
	"go.dedis.ch/opal/core/vault"
	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// IssueOptionRequest describes the option to put on the ledger.
type IssueOptionRequest struct {
	Strike     finance.Amount
	Expiry     time.Time
	Stock      finance.Stock
	OptionType finance.OptionType
	Issuer     identity.Party
	Owner      identity.Party

	// Now is the issuance instant asserted in the time window.
	Now time.Time
}

// IssueOption creates a new option on the ledger. The purchase spot is
// fetched from the oracle so that the state is created with the snapshot
// already populated, and the toy premium is computed for information.
func IssueOption(srvcs Services, req IssueOptionRequest,
	issuerSigner, ownerSigner crypto.Signer) (vault.StateAndRef, error) {

	logger := flowLogger("issue-option")

	spot, err := srvcs.Oracle.QuerySpot(req.Stock)
	if err != nil {
		return vault.StateAndRef{}, xerrors.Errorf("couldn't query spot: %w", err)
	}

	vol, err := srvcs.Oracle.QueryVolatility(req.Stock)
	if err != nil {
		return vault.StateAndRef{}, xerrors.Errorf("couldn't query volatility: %w", err)
	}

	premium := finance.Premium(req.OptionType, spot.Value, req.Strike,
		vol.Value, srvcs.Pricing)

	logger.Info().
		Str("option", req.OptionType.String()).
		Str("stock", req.Stock.Name).
		Float64("premium", premium).
		Msg("issuing option")

	output := state.NewOption(req.Strike, req.Expiry, req.Stock.Name,
		req.Issuer, req.Owner, req.OptionType, spot.Value)

	proposal := tx.Transaction{
		Outputs: []tx.State{output},
		Commands: []tx.Command{{
			Value: option.Issue{},
			Signers: []crypto.PublicKey{
				issuerSigner.GetPublicKey(),
				ownerSigner.GetPublicKey(),
			},
		}},
		Window: tx.WindowUntil(req.Now),
	}

	created, err := finalize(srvcs, logger, proposal, nil,
		[]crypto.Signer{issuerSigner, ownerSigner})
	if err != nil {
		return vault.StateAndRef{}, err
	}

	return created[0], nil
}

// TradeOption re-assigns the owner of the option with the given identifier.
func TradeOption(srvcs Services, id uuid.UUID, newOwner identity.Party,
	issuerSigner, ownerSigner, newOwnerSigner crypto.Signer) (vault.StateAndRef, error) {

	logger := flowLogger("trade-option")

	ref, err := srvcs.Vault.ByLinearID(id)
	if err != nil {
		return vault.StateAndRef{}, xerrors.Errorf("couldn't fetch the option: %v", err)
	}

	input, ok := ref.State.(state.Option)
	if !ok {
		return vault.StateAndRef{}, xerrors.Errorf("state '%v' is not an option", id)
	}

	proposal := tx.Transaction{
		Inputs:  []tx.State{input},
		Outputs: []tx.State{input.WithNewOwner(newOwner)},
		Commands: []tx.Command{{
			Value: option.Trade{},
			Signers: []crypto.PublicKey{
				issuerSigner.GetPublicKey(),
				ownerSigner.GetPublicKey(),
				newOwnerSigner.GetPublicKey(),
			},
		}},
	}

	created, err := finalize(srvcs, logger, proposal,
		[]vault.StateAndRef{ref},
		[]crypto.Signer{issuerSigner, ownerSigner, newOwnerSigner})
	if err != nil {
		return vault.StateAndRef{}, err
	}

	return created[0], nil
}

// ExerciseOption exercises the option with the given identifier using the
// spot observed at the given instant. The flow queries the oracle, embeds
// the observation in the exercise command, obtains the oracle's signature
// over the filtered transaction and finalizes with the emitted obligation.
func ExerciseOption(srvcs Services, id uuid.UUID, at time.Time,
	ownerSigner crypto.Signer) ([]vault.StateAndRef, error) {

	logger := flowLogger("exercise-option")

	ref, err := srvcs.Vault.ByLinearID(id)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fetch the option: %v", err)
	}

	input, ok := ref.State.(state.Option)
	if !ok {
		return nil, xerrors.Errorf("state '%v' is not an option", id)
	}

	stock := finance.NewStock(input.UnderlyingStock, at)

	spot, err := srvcs.Oracle.QuerySpot(stock)
	if err != nil {
		return nil, xerrors.Errorf("couldn't query spot: %w", err)
	}

	moneyness := finance.Moneyness(input.StrikePrice, spot.Value, input.OptionType)

	if moneyness.IsZero() {
		return nil, xerrors.Errorf("option '%v' is out of the money at %v", id, spot.Value)
	}

	exercised := input.Exercise(spot.Value, at)
	obligation := state.NewIOU(moneyness, input.Owner, input.Issuer)

	oracleKey := srvcs.Oracle.GetPublicKey()

	proposal := tx.Transaction{
		Inputs: []tx.State{input},
		Outputs: []tx.State{exercised, obligation},
		Commands: []tx.Command{
			{
				Value: option.Exercise{Spot: spot},
				Signers: []crypto.PublicKey{
					ownerSigner.GetPublicKey(),
					oracleKey,
				},
			},
			{
				Value:   iou.Issue{},
				Signers: []crypto.PublicKey{ownerSigner.GetPublicKey()},
			},
		},
		Window: tx.WindowFrom(at),
	}

	err = srvcs.Registry.Verify(proposal)
	if err != nil {
		return nil, xerrors.Errorf("transaction refused: %w", err)
	}

	tree, err := mtree.NewTree(proposal, srvcs.Hash)
	if err != nil {
		return nil, xerrors.Errorf("couldn't build the tree: %v", err)
	}

	// The oracle only gets to see the exercise command; everything else
	// stays redacted.
	ftx := tree.Filter(func(leaf mtree.Leaf) bool {
		cmd, ok := leaf.GetCommand()
		if !ok {
			return false
		}

		_, ok = cmd.Value.(option.Exercise)

		return ok
	})

	oracleSig, err := srvcs.Oracle.Sign(ftx)
	if err != nil {
		return nil, xerrors.Errorf("oracle refused to sign: %w", err)
	}

	err = oracleKey.Verify(tree.GetRoot(), oracleSig)
	if err != nil {
		return nil, xerrors.Errorf("invalid oracle signature: %v", err)
	}

	logger.Info().Str("spot", spot.Value.String()).Msg("oracle attested the spot")

	return finalize(srvcs, logger, proposal,
		[]vault.StateAndRef{ref}, []crypto.Signer{ownerSigner})
}
