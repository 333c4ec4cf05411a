package state

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.dedis.ch/opal/core/finance"
	"go.dedis.ch/opal/core/identity"
	"golang.org/x/xerrors"
)

// Option is the ledger state of a bilateral option contract. The issuer
// wrote the option, the owner holds the right to exercise it.
//
// The state is an immutable snapshot; the lifecycle helpers return updated
// copies sharing the linear identifier. The spot price at purchase is set
// when the state is created, never afterwards.
//
// - implements tx.LinearState
type Option struct {
	StrikePrice         finance.Amount
	ExpiryDate          time.Time
	UnderlyingStock     string
	Currency            string
	Issuer              identity.Party
	Owner               identity.Party
	OptionType          finance.OptionType
	SpotPriceAtPurchase finance.Amount
	Exercised           bool
	ExercisedOnDate     time.Time
	LinearID            uuid.UUID
}

// NewOption creates an option state with a fresh linear identifier and the
// purchase spot already populated.
func NewOption(strike finance.Amount, expiry time.Time, underlying string,
	issuer, owner identity.Party, optionType finance.OptionType,
	spotAtPurchase finance.Amount) Option {

	return Option{
		StrikePrice:         strike,
		ExpiryDate:          expiry,
		UnderlyingStock:     underlying,
		Currency:            strike.Currency,
		Issuer:              issuer,
		Owner:               owner,
		OptionType:          optionType,
		SpotPriceAtPurchase: spotAtPurchase,
		LinearID:            uuid.New(),
	}
}

// GetLinearID implements tx.LinearState.
func (o Option) GetLinearID() uuid.UUID {
	return o.LinearID
}

// WithNewOwner returns a copy of the state owned by the new party. Used when
// trading the option.
func (o Option) WithNewOwner(newOwner identity.Party) Option {
	o.Owner = newOwner
	return o
}

// Exercise returns a copy of the state marked as exercised at the given
// time, with the observed spot recorded.
func (o Option) Exercise(spot finance.Amount, when time.Time) Option {
	o.Exercised = true
	o.ExercisedOnDate = when
	o.SpotPriceAtPurchase = spot

	return o
}

// SameTerms returns true when both states agree on every field except the
// owner. The trade rules rely on it.
func (o Option) SameTerms(other Option) bool {
	return o.StrikePrice == other.StrikePrice &&
		o.ExpiryDate.Equal(other.ExpiryDate) &&
		o.UnderlyingStock == other.UnderlyingStock &&
		o.Currency == other.Currency &&
		o.Issuer.Equal(other.Issuer) &&
		o.OptionType == other.OptionType &&
		o.SpotPriceAtPurchase == other.SpotPriceAtPurchase &&
		o.Exercised == other.Exercised &&
		o.LinearID == other.LinearID
}

// Fingerprint implements tx.Fingerprinter. It writes a deterministic binary
// representation of the state.
func (o Option) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, uint64(o.StrikePrice.Quantity))

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write strike: %v", err)
	}

	_, err = fmt.Fprintf(w, "%s%s%s%d%d%v",
		o.StrikePrice.Currency, o.UnderlyingStock, o.Currency,
		o.ExpiryDate.UnixNano(), o.OptionType, o.Exercised)
	if err != nil {
		return xerrors.Errorf("couldn't write terms: %v", err)
	}

	err = o.Issuer.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint issuer: %v", err)
	}

	err = o.Owner.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint owner: %v", err)
	}

	binary.LittleEndian.PutUint64(buffer, uint64(o.SpotPriceAtPurchase.Quantity))

	_, err = w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write spot: %v", err)
	}

	_, err = w.Write(o.LinearID[:])
	if err != nil {
		return xerrors.Errorf("couldn't write linear id: %v", err)
	}

	return nil
}

// String implements fmt.Stringer. It returns a short description of the
// option.
func (o Option) String() string {
	return fmt.Sprintf("%v option on %s at strike %v expiring on %v",
		o.OptionType, o.UnderlyingStock, o.StrikePrice, o.ExpiryDate)
}
