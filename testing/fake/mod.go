// Package fake provides fake implementations for interfaces commonly used in
// the repository. The implementations offer configuration to return errors
// when it is appropriate.
package fake

import (
	"hash"

	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// Call tracks the calls to an interface and stores the parameters.
type Call struct {
	calls [][]interface{}
}

// NewCall returns a new empty call monitor.
func NewCall() *Call {
	return &Call{}
}

// Len returns the number of calls.
func (c *Call) Len() int {
	return len(c.calls)
}

// Get returns the nth parameter of the nth call.
func (c *Call) Get(n, param int) interface{} {
	return c.calls[n][param]
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	if c == nil {
		return
	}

	c.calls = append(c.calls, args)
}

// SignatureByte is the byte returned when marshaling a fake signature.
const SignatureByte = 0xfe

// Signature is a fake implementation of crypto.Signature.
type Signature struct {
	err error
}

// NewBadSignature returns a signature that will return an error when
// appropriate.
func NewBadSignature() Signature {
	return Signature{err: xerrors.New("fake error")}
}

// Equal implements crypto.Signature.
func (s Signature) Equal(o crypto.Signature) bool {
	_, ok := o.(Signature)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte{SignatureByte}, s.err
}

// SignatureFactory is a fake implementation of crypto.SignatureFactory.
type SignatureFactory struct {
	err error
}

// NewBadSignatureFactory returns a factory that returns an error when
// appropriate.
func NewBadSignatureFactory() SignatureFactory {
	return SignatureFactory{err: xerrors.New("fake error")}
}

// FromBytes implements crypto.SignatureFactory.
func (f SignatureFactory) FromBytes([]byte) (crypto.Signature, error) {
	return Signature{}, f.err
}

// PublicKey is a fake implementation of crypto.PublicKey.
type PublicKey struct {
	index int
	err   error
}

// NewPublicKey returns a distinguishable fake public key. Two keys created
// with the same index are equal.
func NewPublicKey(index int) PublicKey {
	return PublicKey{index: index}
}

// NewBadPublicKey returns a public key that returns an error when
// appropriate.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: xerrors.New("fake error")}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte{byte(pk.index)}, pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return pk.MarshalBinary()
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.err
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(o interface{}) bool {
	other, ok := o.(PublicKey)
	return ok && other.index == pk.index
}

func (pk PublicKey) String() string {
	return "fake.PublicKey"
}

// PublicKeyFactory is a fake implementation of crypto.PublicKeyFactory.
type PublicKeyFactory struct {
	err error
}

// NewBadPublicKeyFactory returns a factory that returns an error when
// appropriate.
func NewBadPublicKeyFactory() PublicKeyFactory {
	return PublicKeyFactory{err: xerrors.New("fake error")}
}

// FromBytes implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) FromBytes([]byte) (crypto.PublicKey, error) {
	return PublicKey{}, f.err
}

// Signer is a fake implementation of crypto.Signer.
type Signer struct {
	pubkey PublicKey
	err    error
}

// NewSigner returns a fake signer.
func NewSigner() Signer {
	return Signer{}
}

// NewSignerWithPublicKey returns a fake signer with the given public key.
func NewSignerWithPublicKey(pk PublicKey) Signer {
	return Signer{pubkey: pk}
}

// NewBadSigner returns a signer that will return an error when appropriate.
func NewBadSigner() Signer {
	return Signer{err: xerrors.New("fake error")}
}

// GetPublicKeyFactory implements crypto.Signer.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return PublicKeyFactory{}
}

// GetSignatureFactory implements crypto.Signer.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return SignatureFactory{}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.pubkey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}

// Hash is a fake implementation of hash.Hash.
type Hash struct {
	hash.Hash
	delay int
	err   error
	Call  *Call
}

// NewBadHash returns a hash that returns an error when writing.
func NewBadHash() *Hash {
	return &Hash{err: xerrors.New("fake error")}
}

// NewBadHashWithDelay returns a hash that returns an error after the given
// number of writes.
func NewBadHashWithDelay(delay int) *Hash {
	return &Hash{err: xerrors.New("fake error"), delay: delay}
}

// Write implements io.Writer.
func (h *Hash) Write(in []byte) (int, error) {
	h.Call.Add(in)

	if h.err != nil {
		if h.delay == 0 {
			return 0, h.err
		}

		h.delay--
	}

	return len(in), nil
}

// Size implements hash.Hash.
func (h *Hash) Size() int {
	return 32
}

// Sum implements hash.Hash.
func (h *Hash) Sum([]byte) []byte {
	return make([]byte, 32)
}

// Reset implements hash.Hash.
func (h *Hash) Reset() {}

// HashFactory is a fake implementation of crypto.HashFactory.
type HashFactory struct {
	hash *Hash
}

// NewHashFactory returns a fake hash factory.
func NewHashFactory(h *Hash) HashFactory {
	return HashFactory{hash: h}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return f.hash
}
