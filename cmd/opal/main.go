// Package main provides a small command line tool to query the oracle
// reference datasets and to compute the toy premium of an option, using the
// same core services as the demo ledger.
package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/shopspring/decimal"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/opal"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/crypto/loader"
	"go.dedis.ch/opal/crypto/schnorr"
	"go.dedis.ch/opal/oracle"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := &urfave.App{
		Name:   "opal",
		Usage:  "query the market-data oracle and price options",
		Writer: out,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  "config",
				Usage: "path of the YAML configuration",
				Value: "opal.yml",
			},
		},
		Commands: []*urfave.Command{
			{
				Name:   "query-spot",
				Usage:  "look up the spot price of a stock at an instant",
				Flags:  stockFlags(),
				Action: querySpotAction,
			},
			{
				Name:   "query-vol",
				Usage:  "look up the volatility of a stock at an instant",
				Flags:  stockFlags(),
				Action: queryVolAction,
			},
			{
				Name:  "premium",
				Usage: "compute the illustrative premium of an option",
				Flags: append(stockFlags(),
					&urfave.StringFlag{
						Name:     "strike",
						Usage:    "strike price in currency units",
						Required: true,
					},
					&urfave.StringFlag{
						Name:  "type",
						Usage: "option type: call or put",
						Value: "call",
					},
				),
				Action: premiumAction,
			},
		},
	}

	return app.Run(args)
}

// config is the explicit configuration of the tool, loaded from YAML.
type config struct {
	Oracle  oracle.Config `yaml:"oracle"`
	KeyFile string        `yaml:"keyFile"`
	Pricing struct {
		RiskFreeRate float64 `yaml:"riskFreeRate"`
		TimeToExpiry float64 `yaml:"timeToExpiry"`
	} `yaml:"pricing"`
}

func stockFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:     "stock",
			Usage:    "name of the stock",
			Required: true,
		},
		&urfave.StringFlag{
			Name:     "time",
			Usage:    "reference instant (RFC 3339)",
			Required: true,
		},
	}
}

func querySpotAction(c *urfave.Context) error {
	srvc, _, err := makeService(c)
	if err != nil {
		return err
	}

	stock, err := parseStock(c)
	if err != nil {
		return err
	}

	spot, err := srvc.QuerySpot(stock)
	if err != nil {
		return xerrors.Errorf("query failed: %w", err)
	}

	fmt.Fprintln(c.App.Writer, spot.Value)

	return nil
}

func queryVolAction(c *urfave.Context) error {
	srvc, _, err := makeService(c)
	if err != nil {
		return err
	}

	stock, err := parseStock(c)
	if err != nil {
		return err
	}

	vol, err := srvc.QueryVolatility(stock)
	if err != nil {
		return xerrors.Errorf("query failed: %w", err)
	}

	fmt.Fprintln(c.App.Writer, vol.Value)

	return nil
}

func premiumAction(c *urfave.Context) error {
	srvc, cfg, err := makeService(c)
	if err != nil {
		return err
	}

	stock, err := parseStock(c)
	if err != nil {
		return err
	}

	optionType := finance.Call
	if c.String("type") == "put" {
		optionType = finance.Put
	}

	rawStrike, err := decimal.NewFromString(c.String("strike"))
	if err != nil {
		return xerrors.Errorf("invalid strike: %v", err)
	}

	strike, err := finance.AmountFromDecimal(rawStrike, cfg.Oracle.Currency)
	if err != nil {
		return xerrors.Errorf("invalid strike: %v", err)
	}

	spot, err := srvc.QuerySpot(stock)
	if err != nil {
		return xerrors.Errorf("query failed: %w", err)
	}

	vol, err := srvc.QueryVolatility(stock)
	if err != nil {
		return xerrors.Errorf("query failed: %w", err)
	}

	params := finance.PricingParams{
		RiskFreeRate: cfg.Pricing.RiskFreeRate,
		TimeToExpiry: cfg.Pricing.TimeToExpiry,
	}

	premium := finance.Premium(optionType, spot.Value, strike, vol.Value, params)

	fmt.Fprintf(c.App.Writer, "%.4f\n", premium)

	return nil
}

func parseStock(c *urfave.Context) (finance.Stock, error) {
	at, err := time.Parse(time.RFC3339, c.String("time"))
	if err != nil {
		return finance.Stock{}, xerrors.Errorf("invalid time: %v", err)
	}

	return finance.NewStock(c.String("stock"), at), nil
}

func makeService(c *urfave.Context) (*oracle.Service, config, error) {
	var cfg config

	data, err := ioutil.ReadFile(c.String("config"))
	if err != nil {
		return nil, cfg, xerrors.Errorf("couldn't read config: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, cfg, xerrors.Errorf("couldn't decode config: %v", err)
	}

	signer, err := loadSigner(cfg.KeyFile)
	if err != nil {
		return nil, cfg, xerrors.Errorf("couldn't load the key: %v", err)
	}

	srvc, err := oracle.NewService(cfg.Oracle, signer)
	if err != nil {
		return nil, cfg, xerrors.Errorf("couldn't start the oracle: %w", err)
	}

	opal.Logger.Debug().Str("config", c.String("config")).Msg("oracle ready")

	return srvc, cfg, nil
}

// loadSigner loads the oracle key from the file, or creates it on first use.
func loadSigner(path string) (schnorr.Signer, error) {
	data, err := loader.NewFileLoader(path).LoadOrCreate(keyGenerator{})
	if err != nil {
		return schnorr.Signer{}, xerrors.Errorf("while loading: %v", err)
	}

	signer, err := schnorr.NewSignerFromBytes(data)
	if err != nil {
		return schnorr.Signer{}, xerrors.Errorf("while decoding: %v", err)
	}

	return signer, nil
}

// keyGenerator generates a fresh Schnorr private key.
//
// - implements loader.Generator
type keyGenerator struct{}

// Generate implements loader.Generator.
func (keyGenerator) Generate() ([]byte, error) {
	return schnorr.NewSigner().MarshalPrivateKey()
}
