package schnorr

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/opal/testing/fake"
)

func TestPublicKey_New(t *testing.T) {
	signer := NewSigner()

	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	pubkey, err := NewPublicKey(data)
	require.NoError(t, err)
	require.True(t, pubkey.Equal(signer.GetPublicKey()))

	_, err = NewPublicKey([]byte{0xff})
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't unmarshal point")
}

func TestPublicKey_MarshalText(t *testing.T) {
	pubkey := NewSigner().GetPublicKey().(PublicKey)

	text, err := pubkey.MarshalText()
	require.NoError(t, err)
	require.Contains(t, string(text), "schnorr:")

	require.Contains(t, pubkey.String(), "schnorr:")
	require.Len(t, pubkey.String(), 8+16)
}

func TestPublicKey_Verify(t *testing.T) {
	signer := NewSigner()

	signature, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	pubkey := signer.GetPublicKey()

	require.NoError(t, pubkey.Verify([]byte("deadbeef"), signature))

	err = pubkey.Verify([]byte("tampered"), signature)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schnorr verify failed")

	err = pubkey.Verify([]byte("deadbeef"), fake.Signature{})
	require.EqualError(t, err, "invalid signature type 'fake.Signature'")
}

func TestPublicKey_Equal(t *testing.T) {
	signer := NewSigner()

	require.True(t, signer.GetPublicKey().Equal(signer.GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(NewSigner().GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(fake.NewPublicKey(1)))

	pubkey := signer.GetPublicKey().(PublicKey)
	require.True(t, pubkey.Equal(NewPublicKeyFromPoint(pubkey.GetPoint())))
}

func TestSignature_Equal(t *testing.T) {
	signature := NewSignature([]byte{1, 2, 3})

	require.True(t, signature.Equal(NewSignature([]byte{1, 2, 3})))
	require.False(t, signature.Equal(NewSignature([]byte{3, 2, 1})))
	require.False(t, signature.Equal(fake.Signature{}))

	data, err := signature.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestPublicKeyFactory_FromBytes(t *testing.T) {
	signer := NewSigner()

	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	pubkey, err := signer.GetPublicKeyFactory().FromBytes(data)
	require.NoError(t, err)
	require.True(t, pubkey.Equal(signer.GetPublicKey()))

	_, err = signer.GetPublicKeyFactory().FromBytes([]byte{0xff})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal the key")
}

func TestSignatureFactory_FromBytes(t *testing.T) {
	signer := NewSigner()

	signature, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	data, err := signature.MarshalBinary()
	require.NoError(t, err)

	decoded, err := signer.GetSignatureFactory().FromBytes(data)
	require.NoError(t, err)
	require.True(t, decoded.Equal(signature))

	require.NoError(t, signer.GetPublicKey().Verify([]byte("deadbeef"), decoded))
}

func TestSigner_FromBytes(t *testing.T) {
	signer := NewSigner()

	data, err := signer.MarshalPrivateKey()
	require.NoError(t, err)

	restored, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.True(t, restored.GetPublicKey().Equal(signer.GetPublicKey()))
	require.True(t, restored.GetPrivateKey().Equal(signer.GetPrivateKey()))

	_, err = NewSignerFromBytes([]byte{0xff})
	require.Error(t, err)
	require.Contains(t, err.Error(), "while unmarshaling scalar")
}

func TestSigner_Sign(t *testing.T) {
	signer := NewSigner()

	signature, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	require.NoError(t, signer.GetPublicKey().Verify([]byte("deadbeef"), signature))
	require.Error(t, NewSigner().GetPublicKey().Verify([]byte("deadbeef"), signature))
}
