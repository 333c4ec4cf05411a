package flows

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/opal/contracts"
	"go.dedis.ch/opal/contracts/iou"
	"go.dedis.ch/opal/contracts/option"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"go.dedis.ch/opal/core/state"
	"go.dedis.ch/opal/core/vault"
	"go.dedis.ch/opal/crypto"
	"go.dedis.ch/opal/crypto/schnorr"
	"go.dedis.ch/opal/oracle"
)

var (
	testIssueAt    = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	testExerciseAt = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	testExpiry     = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestIssueOption(t *testing.T) {
	env := makeEnv(t)

	ref := env.issueOption(t)

	stored, err := env.srvcs.Vault.ByLinearID(ref.State.(state.Option).LinearID)
	require.NoError(t, err)

	created := stored.State.(state.Option)
	require.Equal(t, finance.NewAmount(120_00, "USD"), created.StrikePrice)
	require.Equal(t, finance.NewAmount(118_00, "USD"), created.SpotPriceAtPurchase)
	require.True(t, created.Owner.Equal(env.owner))
	require.False(t, created.Exercised)
}

func TestIssueOption_UnknownStock(t *testing.T) {
	env := makeEnv(t)

	req := env.issueRequest()
	req.Stock = finance.NewStock("NOPE", testIssueAt)

	_, err := IssueOption(env.srvcs, req, env.issuerSigner, env.ownerSigner)
	require.ErrorIs(t, err, oracle.ErrUnknownStock)
}

func TestTradeOption(t *testing.T) {
	env := makeEnv(t)

	ref := env.issueOption(t)
	id := ref.State.(state.Option).LinearID

	buyer := identity.NewParty("carol", env.buyerSigner.GetPublicKey())

	traded, err := TradeOption(env.srvcs, id, buyer,
		env.issuerSigner, env.ownerSigner, env.buyerSigner)
	require.NoError(t, err)
	require.True(t, traded.State.(state.Option).Owner.Equal(buyer))

	// The previous version is consumed.
	current, err := env.srvcs.Vault.ByLinearID(id)
	require.NoError(t, err)
	require.True(t, current.State.(state.Option).Owner.Equal(buyer))

	_, err = env.srvcs.Vault.Record([]vault.StateAndRef{ref}, nil)
	require.Error(t, err)
}

func TestTradeOption_NotAnOption(t *testing.T) {
	env := makeEnv(t)

	obligation := state.NewIOU(finance.NewAmount(1_00, "USD"), env.owner, env.issuer)
	env.srvcs.Vault.Store(obligation)

	_, err := TradeOption(env.srvcs, obligation.LinearID,
		env.owner, env.issuerSigner, env.ownerSigner, env.buyerSigner)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not an option")
}

func TestExerciseOption(t *testing.T) {
	env := makeEnv(t)

	ref := env.issueOption(t)
	id := ref.State.(state.Option).LinearID

	created, err := ExerciseOption(env.srvcs, id, testExerciseAt, env.ownerSigner)
	require.NoError(t, err)
	require.Len(t, created, 2)

	exercised := created[0].State.(state.Option)
	require.True(t, exercised.Exercised)
	require.Equal(t, testExerciseAt, exercised.ExercisedOnDate)

	// Strike 120, spot 130: the issuer owes the moneyness of 10 to the
	// owner.
	obligation := created[1].State.(state.IOU)
	require.Equal(t, finance.NewAmount(10_00, "USD"), obligation.Amount)
	require.True(t, obligation.Lender.Equal(env.owner))
	require.True(t, obligation.Borrower.Equal(env.issuer))
}

func TestExerciseOption_OutOfTheMoney(t *testing.T) {
	env := makeEnv(t)

	ref := env.issueOption(t)
	id := ref.State.(state.Option).LinearID

	// At issuance the spot of 118 is below the strike of 120.
	_, err := ExerciseOption(env.srvcs, id, testIssueAt, env.ownerSigner)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of the money")
}

func TestSettleIOU_Full(t *testing.T) {
	env := makeEnv(t)

	obligation := env.exercisedIOU(t)

	SelfIssueCash(env.srvcs, env.issuer, finance.NewAmount(10_00, "USD"))

	created, err := SettleIOU(env.srvcs, obligation.LinearID,
		finance.NewAmount(10_00, "USD"), env.ownerSigner, env.issuerSigner)
	require.NoError(t, err)
	require.Len(t, created, 1)

	paid := created[0].State.(state.Cash)
	require.Equal(t, finance.NewAmount(10_00, "USD"), paid.Amount)
	require.True(t, paid.Owner.Equal(env.owner))

	// The obligation is fully retired.
	_, err = env.srvcs.Vault.ByLinearID(obligation.LinearID)
	require.Error(t, err)
}

func TestSettleIOU_Partial(t *testing.T) {
	env := makeEnv(t)

	obligation := env.exercisedIOU(t)

	SelfIssueCash(env.srvcs, env.issuer, finance.NewAmount(20_00, "USD"))

	created, err := SettleIOU(env.srvcs, obligation.LinearID,
		finance.NewAmount(5_00, "USD"), env.ownerSigner, env.issuerSigner)
	require.NoError(t, err)
	require.Len(t, created, 3)

	current, err := env.srvcs.Vault.ByLinearID(obligation.LinearID)
	require.NoError(t, err)
	require.Equal(t, finance.NewAmount(5_00, "USD"),
		current.State.(state.IOU).Outstanding())
}

func TestSettleIOU_Insufficient(t *testing.T) {
	env := makeEnv(t)

	obligation := env.exercisedIOU(t)

	SelfIssueCash(env.srvcs, env.issuer, finance.NewAmount(3_00, "USD"))

	_, err := SettleIOU(env.srvcs, obligation.LinearID,
		finance.NewAmount(10_00, "USD"), env.ownerSigner, env.issuerSigner)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient cash")
}

func TestTransferIOU(t *testing.T) {
	env := makeEnv(t)

	obligation := env.exercisedIOU(t)

	carol := identity.NewParty("carol", env.buyerSigner.GetPublicKey())

	transferred, err := TransferIOU(env.srvcs, obligation.LinearID, carol,
		env.issuerSigner, env.ownerSigner, env.buyerSigner)
	require.NoError(t, err)
	require.True(t, transferred.State.(state.IOU).Lender.Equal(carol))
}

// -----------------------------------------------------------------------------
// Utility functions

type testEnv struct {
	srvcs Services

	issuer identity.Party
	owner  identity.Party

	issuerSigner crypto.Signer
	ownerSigner  crypto.Signer
	buyerSigner  crypto.Signer
}

// makeEnv wires an in-process ledger: a registry with both contracts, an
// oracle with a small dataset, a fresh vault and real Schnorr signers.
func makeEnv(t *testing.T) testEnv {
	t.Helper()

	dir := t.TempDir()

	spots := filepath.Join(dir, "spots.txt")
	err := os.WriteFile(spots, []byte(
		"IBM 2022-01-01T00:00:00Z = 118\n"+
			"IBM 2022-06-01T00:00:00Z = 130\n"), 0600)
	require.NoError(t, err)

	vols := filepath.Join(dir, "vols.txt")
	err = os.WriteFile(vols, []byte("IBM 2022-01-01T00:00:00Z = 0.4\n"), 0600)
	require.NoError(t, err)

	oracleSrvc, err := oracle.NewService(oracle.Config{
		SpotsFile: spots,
		VolsFile:  vols,
		Currency:  "USD",
	}, schnorr.NewSigner())
	require.NoError(t, err)

	reg := contracts.NewRegistry()
	option.RegisterContract(reg, option.NewContract(oracleSrvc.GetPublicKey()))
	iou.RegisterContract(reg, iou.NewContract())

	v, err := vault.New(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)

	t.Cleanup(func() { v.Close() })

	issuerSigner := schnorr.NewSigner()
	ownerSigner := schnorr.NewSigner()
	buyerSigner := schnorr.NewSigner()

	return testEnv{
		srvcs: Services{
			Registry: reg,
			Oracle:   oracleSrvc,
			Vault:    v,
			Notary:   schnorr.NewSigner(),
			Hash:     crypto.NewSha256Factory(),
			Pricing:  finance.DefaultPricingParams(),
		},
		issuer:       identity.NewParty("alice", issuerSigner.GetPublicKey()),
		owner:        identity.NewParty("bob", ownerSigner.GetPublicKey()),
		issuerSigner: issuerSigner,
		ownerSigner:  ownerSigner,
		buyerSigner:  buyerSigner,
	}
}

func (env testEnv) issueRequest() IssueOptionRequest {
	return IssueOptionRequest{
		Strike:     finance.NewAmount(120_00, "USD"),
		Expiry:     testExpiry,
		Stock:      finance.NewStock("IBM", testIssueAt),
		OptionType: finance.Call,
		Issuer:     env.issuer,
		Owner:      env.owner,
		Now:        testIssueAt,
	}
}

func (env testEnv) issueOption(t *testing.T) vault.StateAndRef {
	t.Helper()

	ref, err := IssueOption(env.srvcs, env.issueRequest(),
		env.issuerSigner, env.ownerSigner)
	require.NoError(t, err)

	return ref
}

// exercisedIOU runs the issue and exercise flows and returns the emitted
// obligation.
func (env testEnv) exercisedIOU(t *testing.T) state.IOU {
	t.Helper()

	ref := env.issueOption(t)
	id := ref.State.(state.Option).LinearID

	created, err := ExerciseOption(env.srvcs, id, testExerciseAt, env.ownerSigner)
	require.NoError(t, err)

	return created[1].State.(state.IOU)
}
