// Package flows drives the lifecycle operations of the demo ledger. Each
// flow builds a transaction proposal, runs the contract validation, collects
// the signatures of the required parties over the transaction commitment,
// has the notary counter-sign and records the result in the vault.
//
// On a deployed platform these steps span several nodes with checkpointed
// sessions; here every collaborator is in-process, which is enough for the
// demo and for exercising the core end to end.
package flows

import (
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/opal"
	"go.dedis.ch/opal/contracts"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/core/tx/mtree"
	"go.dedis.ch/opal/core/vault"
	"go.dedis.ch/opal/crypto"
	"go.dedis.ch/opal/oracle"
	"golang.org/x/xerrors"
)

// Services gathers the collaborators a flow needs.
type Services struct {
	Registry *contracts.Registry
	Oracle   *oracle.Service
	Vault    *vault.Vault
	Notary   crypto.Signer
	Hash     crypto.HashFactory
	Pricing  finance.PricingParams
}

// SelfIssueCash stores cash owned by the party, so that settlement flows
// have something to move. Cash creation is not constrained by a contract in
// the demo.
func SelfIssueCash(srvcs Services, owner identity.Party,
	amount finance.Amount) vault.StateAndRef {

	refs := srvcs.Vault.Store(state.NewCash(amount, owner))

	return refs[0]
}

// finalize runs the common tail of every flow: contract validation,
// signature collection over the commitment, notarization and recording.
func finalize(srvcs Services, logger zerolog.Logger, t tx.Transaction,
	consumed []vault.StateAndRef, signers []crypto.Signer) ([]vault.StateAndRef, error) {

	err := srvcs.Registry.Verify(t)
	if err != nil {
		return nil, xerrors.Errorf("transaction refused: %w", err)
	}

	tree, err := mtree.NewTree(t, srvcs.Hash)
	if err != nil {
		return nil, xerrors.Errorf("couldn't build the tree: %v", err)
	}

	root := tree.GetRoot()

	for _, signer := range signers {
		sig, err := signer.Sign(root)
		if err != nil {
			return nil, xerrors.Errorf("couldn't sign: %v", err)
		}

		err = signer.GetPublicKey().Verify(root, sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}
	}

	_, err = srvcs.Notary.Sign(root)
	if err != nil {
		return nil, xerrors.Errorf("notary refused to sign: %v", err)
	}

	created, err := srvcs.Vault.Record(consumed, t.Outputs)
	if err != nil {
		return nil, xerrors.Errorf("couldn't record the transaction: %v", err)
	}

	logger.Info().Hex("root", root).Msg("transaction finalized")

	return created, nil
}

func flowLogger(name string) zerolog.Logger {
	return opal.Logger.With().
		Str("flow", name).
		Str("run", xid.New().String()).
		Logger()
}
