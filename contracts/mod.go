// Package contracts defines the contract validation engine. A contract is a
// deterministic rule set over a transaction proposal: it either accepts the
// proposed state transition or rejects it with the first violated rule.
//
// Contracts are registered on a registry under a unique name. Verifying a
// transaction runs every registered contract that recognizes one of the
// transaction's commands, so a transaction mixing commands of several
// contracts is checked by each of them.
package contracts

import (
	"fmt"
	"sort"

	"go.dedis.ch/opal/core/tx"
	"golang.org/x/xerrors"
)

// Contract is the interface to implement to register a state-transition rule
// set.
type Contract interface {
	// Verify returns nil when the transaction is a valid transition for this
	// contract, or the first violated rule.
	Verify(t tx.Transaction) error

	// Concerned returns true when the transaction carries at least one
	// command belonging to this contract.
	Concerned(t tx.Transaction) bool
}

// Violation is a named rule failure. It is always a rejection of the
// proposal, never a crash of the validator.
//
// - implements error
type Violation struct {
	Rule string
}

// Error implements error. It returns the violated rule.
func (v Violation) Error() string {
	return fmt.Sprintf("rule violated: %s", v.Rule)
}

// Require returns nil when the condition holds, otherwise the violation of
// the rule.
func Require(condition bool, rule string) error {
	if !condition {
		return Violation{Rule: rule}
	}

	return nil
}

// Registry holds the contracts of the application.
type Registry struct {
	contracts map[string]Contract
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts: map[string]Contract{},
	}
}

// Set stores the contract using the name as the key.
func (r *Registry) Set(name string, contract Contract) {
	if _, ok := r.contracts[name]; ok {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	r.contracts[name] = contract
}

// Get returns the contract registered under the name, or an error when it is
// unknown.
func (r *Registry) Get(name string) (Contract, error) {
	contract, ok := r.contracts[name]
	if !ok {
		return nil, xerrors.Errorf("unknown contract '%s'", name)
	}

	return contract, nil
}

// Verify runs every registered contract concerned by the transaction, in a
// deterministic order. At least one contract must be concerned, and every
// concerned contract must accept.
func (r *Registry) Verify(t tx.Transaction) error {
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}

	sort.Strings(names)

	concerned := 0

	for _, name := range names {
		contract := r.contracts[name]

		if !contract.Concerned(t) {
			continue
		}

		concerned++

		err := contract.Verify(t)
		if err != nil {
			return xerrors.Errorf("contract '%s' refused the transaction: %w",
				name, err)
		}
	}

	if concerned == 0 {
		return xerrors.New("no contract recognizes the transaction")
	}

	return nil
}
