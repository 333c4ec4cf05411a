// Package oracle implements the market-data oracle. The service holds two
// read-only reference datasets loaded once at startup, answers point-in-time
// queries for spot prices and volatilities, and attests to the spot prices
// embedded in exercise transactions by signing over their commitment.
//
// The signing protocol is selective disclosure: the oracle only receives a
// filtered view of the transaction exposing the commands. It refuses to sign
// as soon as it sees a leaf it does not recognize, a command it is not named
// a signer of, or a spot price that does not match its own dataset.
package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/opal"
	"go.dedis.ch/opal/contracts/option"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/tx/mtree"
	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

var (
	// ErrUnknownStock is returned when a queried stock and instant is absent
	// from the reference data. There is no interpolation and no fallback.
	ErrUnknownStock = xerrors.New("unknown stock")

	// ErrInvalidPartialTree is returned when the filtered transaction fails
	// its structural verification.
	ErrInvalidPartialTree = xerrors.New("invalid partial merkle tree")

	// ErrUnauthorizedRequest is returned when the oracle refuses to sign
	// over the disclosed data.
	ErrUnauthorizedRequest = xerrors.New("unauthorized signature request")
)

var (
	promQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opal_oracle_queries_total",
		Help: "total number of oracle queries",
	}, []string{"kind", "status"})

	promSignatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opal_oracle_signatures_total",
		Help: "total number of oracle signing decisions",
	}, []string{"status"})
)

func init() {
	opal.PromCollectors = append(opal.PromCollectors, promQueries, promSignatures)
}

// Config gathers the explicit parameters of the oracle service.
type Config struct {
	// SpotsFile is the path of the spot price dataset.
	SpotsFile string `yaml:"spotsFile"`

	// VolsFile is the path of the volatility dataset.
	VolsFile string `yaml:"volsFile"`

	// Currency is the currency the spot prices are denominated in.
	Currency string `yaml:"currency"`
}

// Service is the oracle service. The datasets are loaded once at
// construction and never mutated afterwards, so the queries are safe for
// unsynchronized concurrent use.
type Service struct {
	signer crypto.Signer
	spots  map[stockKey]finance.SpotPrice
	vols   map[stockKey]finance.Volatility
	logger zerolog.Logger
}

// NewService loads the reference datasets and returns the oracle service. A
// malformed dataset line fails the construction.
func NewService(cfg Config, signer crypto.Signer) (*Service, error) {
	spots, err := loadSpots(cfg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't load spots: %w", err)
	}

	vols, err := loadVols(cfg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't load volatilities: %w", err)
	}

	srvc := &Service{
		signer: signer,
		spots:  spots,
		vols:   vols,
		logger: opal.Logger.With().Str("service", "oracle").Logger(),
	}

	srvc.logger.Info().
		Int("spots", len(spots)).
		Int("volatilities", len(vols)).
		Msg("oracle datasets loaded")

	return srvc, nil
}

// GetPublicKey returns the public key the oracle signs with.
func (srvc *Service) GetPublicKey() crypto.PublicKey {
	return srvc.signer.GetPublicKey()
}

// QuerySpot returns the spot price stored for the stock at its reference
// instant. It fails with ErrUnknownStock when no record matches exactly.
func (srvc *Service) QuerySpot(stock finance.Stock) (finance.SpotPrice, error) {
	spot, ok := srvc.spots[keyOf(stock)]
	if !ok {
		promQueries.WithLabelValues("spot", "miss").Inc()

		return finance.SpotPrice{}, xerrors.Errorf("no spot for %v: %w",
			stock, ErrUnknownStock)
	}

	promQueries.WithLabelValues("spot", "hit").Inc()

	return spot, nil
}

// QueryVolatility returns the volatility stored for the stock at its
// reference instant. It fails with ErrUnknownStock when no record matches
// exactly.
func (srvc *Service) QueryVolatility(stock finance.Stock) (finance.Volatility, error) {
	vol, ok := srvc.vols[keyOf(stock)]
	if !ok {
		promQueries.WithLabelValues("volatility", "miss").Inc()

		return finance.Volatility{}, xerrors.Errorf("no volatility for %v: %w",
			stock, ErrUnknownStock)
	}

	promQueries.WithLabelValues("volatility", "hit").Inc()

	return vol, nil
}

// Sign attests to a filtered transaction. It verifies the structural
// consistency of the partial tree, then checks every disclosed leaf: only
// exercise commands naming the oracle as a signer and embedding a spot price
// equal to the oracle's own record are acceptable. When all leaves pass, it
// returns a signature over the transaction commitment.
func (srvc *Service) Sign(ftx *mtree.FilteredTransaction) (crypto.Signature, error) {
	err := ftx.Verify()
	if err != nil {
		promSignatures.WithLabelValues("refused").Inc()

		return nil, xerrors.Errorf("%w: %v", ErrInvalidPartialTree, err)
	}

	for _, leaf := range ftx.GetLeaves() {
		err = srvc.checkLeaf(leaf)
		if err != nil {
			promSignatures.WithLabelValues("refused").Inc()

			srvc.logger.Warn().Err(err).Msg("refusing to sign")

			return nil, xerrors.Errorf("%w: %v", ErrUnauthorizedRequest, err)
		}
	}

	signature, err := srvc.signer.Sign(ftx.GetRoot())
	if err != nil {
		promSignatures.WithLabelValues("error").Inc()

		return nil, xerrors.Errorf("couldn't sign the commitment: %v", err)
	}

	promSignatures.WithLabelValues("signed").Inc()

	return signature, nil
}

// checkLeaf fails for any disclosed leaf the oracle is not willing to attest
// to. The oracle fails closed: an unexpected leaf kind is a refusal, not a
// skip.
func (srvc *Service) checkLeaf(leaf mtree.DisclosedLeaf) error {
	cmd, ok := leaf.GetCommand()
	if !ok {
		return xerrors.Errorf("disclosed leaf %d is a %v, expected a command",
			leaf.GetIndex(), leaf.GetKind())
	}

	exercise, ok := cmd.Value.(option.Exercise)
	if !ok {
		return xerrors.Errorf("command '%T' is not an exercise", cmd.Value)
	}

	if !cmd.IsSignedBy(srvc.signer.GetPublicKey()) {
		return xerrors.New("the oracle is not a signer of the command")
	}

	spot, err := srvc.QuerySpot(exercise.Spot.Stock)
	if err != nil {
		return xerrors.Errorf("while checking the spot: %v", err)
	}

	if !spot.Equal(exercise.Spot) {
		return xerrors.Errorf("embedded spot %v does not match the record %v",
			exercise.Spot.Value, spot.Value)
	}

	return nil
}

func loadSpots(cfg Config) (map[stockKey]finance.SpotPrice, error) {
	records, err := loadRecords(cfg.SpotsFile)
	if err != nil {
		return nil, err
	}

	spots := make(map[stockKey]finance.SpotPrice, len(records))

	for _, rec := range records {
		value, err := finance.AmountFromDecimal(rec.value, cfg.Currency)
		if err != nil {
			return nil, xerrors.Errorf("spot of %v: %v", rec.stock, err)
		}

		spots[keyOf(rec.stock)] = finance.SpotPrice{Stock: rec.stock, Value: value}
	}

	return spots, nil
}

func loadVols(cfg Config) (map[stockKey]finance.Volatility, error) {
	records, err := loadRecords(cfg.VolsFile)
	if err != nil {
		return nil, err
	}

	vols := make(map[stockKey]finance.Volatility, len(records))

	for _, rec := range records {
		value, _ := rec.value.Float64()

		vols[keyOf(rec.stock)] = finance.Volatility{Stock: rec.stock, Value: value}
	}

	return vols, nil
}
