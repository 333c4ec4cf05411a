// Package crypto defines the cryptographic primitives needed by the ledger
// core: public keys used as party identities, signatures over transaction
// commitments, and the signers that produce them.
//
// The implementations live in the subpackages so that the contract and oracle
// logic only ever depends on the interfaces.
package crypto

import (
	"encoding"
	"hash"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// RandGenerator is an interface to generate random values with a private
// implementation to allow tests to simulate errors.
type RandGenerator interface {
	Read(buffer []byte) (int, error)
}

// PublicKey is a public identity that can be used to verify a signature. It
// is the stable handle used for signer-set comparisons in the contracts.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message for this
	// public key.
	Verify(msg []byte, signature Signature) error

	// Equal returns true when the other object is the same public key.
	Equal(other interface{}) bool
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	// Equal returns true when the other signature is the same.
	Equal(other Signature) bool
}

// PublicKeyFactory is a factory to decode public keys.
type PublicKeyFactory interface {
	// FromBytes returns the public key unmarshaled from the bytes.
	FromBytes(data []byte) (PublicKey, error)
}

// SignatureFactory is a factory to decode signatures.
type SignatureFactory interface {
	// FromBytes returns the signature unmarshaled from the bytes.
	FromBytes(data []byte) (Signature, error)
}

// Signer provides the primitives to sign a message with a private key held in
// memory.
type Signer interface {
	GetPublicKeyFactory() PublicKeyFactory
	GetSignatureFactory() SignatureFactory
	GetPublicKey() PublicKey
	Sign(msg []byte) (Signature, error)
}

// ContainsKey returns true when the given public key appears in the list. It
// is the membership primitive used for required-signer checks.
func ContainsKey(keys []PublicKey, key PublicKey) bool {
	for _, k := range keys {
		if key.Equal(k) {
			return true
		}
	}

	return false
}

// SameKeySet returns true when both lists contain exactly the same set of
// public keys, regardless of order and duplicates.
func SameKeySet(a, b []PublicKey) bool {
	for _, k := range a {
		if !ContainsKey(b, k) {
			return false
		}
	}

	for _, k := range b {
		if !ContainsKey(a, k) {
			return false
		}
	}

	return true
}
