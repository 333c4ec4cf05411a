package oracle

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.dedis.ch/opal/core/finance"
	"golang.org/x/xerrors"
)

// ParseError is returned when a line of a reference dataset is malformed. It
// carries the offending line and the underlying cause. The datasets are
// curated, so a parse error is fatal to the service initialization.
//
// - implements error
type ParseError struct {
	Line string

	cause error
}

// Error implements error.
func (e ParseError) Error() string {
	return fmt.Sprintf("malformed record %q: %v", e.Line, e.cause)
}

// Unwrap returns the underlying cause.
func (e ParseError) Unwrap() error {
	return e.cause
}

// record is a parsed reference-data line: a stock at an instant and the
// decimal value observed for it.
type record struct {
	stock finance.Stock
	value decimal.Decimal
}

// parseRecord parses a line of the form "<name> <ISO-8601-time> = <decimal>".
// The left side's last whitespace-delimited token is the timestamp and the
// remainder is the stock name, so names may contain spaces.
func parseRecord(line string) (record, error) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return record{}, ParseError{Line: line, cause: xerrors.New("missing '='")}
	}

	key := strings.TrimSpace(parts[0])
	rawValue := strings.TrimSpace(parts[1])

	words := strings.Fields(key)
	if len(words) < 2 {
		return record{}, ParseError{Line: line,
			cause: xerrors.New("expected a name and a timestamp")}
	}

	at, err := time.Parse(time.RFC3339, words[len(words)-1])
	if err != nil {
		return record{}, ParseError{Line: line, cause: err}
	}

	value, err := decimal.NewFromString(rawValue)
	if err != nil {
		return record{}, ParseError{Line: line, cause: err}
	}

	name := strings.Join(words[:len(words)-1], " ")

	return record{stock: finance.NewStock(name, at), value: value}, nil
}

// loadRecords reads a dataset file into parsed records, skipping empty
// lines.
func loadRecords(path string) ([]record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("while opening dataset: %v", err)
	}

	defer file.Close()

	var records []record

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	err = scanner.Err()
	if err != nil {
		return nil, xerrors.Errorf("while reading dataset: %v", err)
	}

	return records, nil
}

// stockKey is the normalized map key of a stock reference. The instant is
// reduced to unix nanoseconds so that equal instants from different clock
// readings collide as expected.
type stockKey struct {
	name string
	at   int64
}

func keyOf(stock finance.Stock) stockKey {
	return stockKey{name: stock.Name, at: stock.AtTime.UnixNano()}
}
