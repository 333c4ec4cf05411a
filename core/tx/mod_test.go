package tx

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/opal/crypto"
	"go.dedis.ch/opal/testing/fake"
	"golang.org/x/xerrors"
)

func TestCommand_IsSignedBy(t *testing.T) {
	cmd := Command{
		Value:   fakeData{},
		Signers: keys(fake.NewPublicKey(0), fake.NewPublicKey(1)),
	}

	require.True(t, cmd.IsSignedBy(fake.NewPublicKey(0)))
	require.True(t, cmd.IsSignedBy(fake.NewPublicKey(1)))
	require.False(t, cmd.IsSignedBy(fake.NewPublicKey(2)))
}

func TestCommand_Fingerprint(t *testing.T) {
	cmd := Command{
		Value:   fakeData{},
		Signers: keys(fake.NewPublicKey(7)),
	}

	buffer := new(bytes.Buffer)

	err := cmd.Fingerprint(buffer)
	require.NoError(t, err)
	require.Equal(t, "\xaa\x07", buffer.String())

	err = Command{Value: fakeData{err: fakeErr}}.Fingerprint(buffer)
	require.EqualError(t, err, "couldn't fingerprint payload: fake error")

	cmd.Signers = keys(fake.NewBadPublicKey())
	err = cmd.Fingerprint(buffer)
	require.EqualError(t, err, "couldn't marshal signer: fake error")

	cmd.Signers = keys(fake.NewPublicKey(0))
	err = cmd.Fingerprint(badWriter{})
	require.EqualError(t, err, "couldn't write signer: fake error")
}

func TestTimeWindow_Fingerprint(t *testing.T) {
	at := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	buffer := new(bytes.Buffer)

	err := WindowUntil(at).Fingerprint(buffer)
	require.NoError(t, err)
	require.Equal(t, 16, buffer.Len())
	require.Equal(t, make([]byte, 8), buffer.Bytes()[:8])
	require.NotEqual(t, make([]byte, 8), buffer.Bytes()[8:])

	buffer.Reset()

	err = WindowBetween(at, at.Add(time.Hour)).Fingerprint(buffer)
	require.NoError(t, err)
	require.NotEqual(t, make([]byte, 8), buffer.Bytes()[:8])

	err = WindowFrom(at).Fingerprint(badWriter{})
	require.EqualError(t, err, "couldn't write bounds: fake error")
}

func TestTimeWindow_Bounds(t *testing.T) {
	at := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, WindowFrom(at).HasFrom())
	require.False(t, WindowFrom(at).HasUntil())
	require.True(t, WindowUntil(at).HasUntil())
	require.False(t, WindowUntil(at).HasFrom())
	require.True(t, WindowBetween(at, at).HasFrom())
	require.True(t, WindowBetween(at, at).HasUntil())
}

func TestTransaction_LinearStates(t *testing.T) {
	id := uuid.New()
	other := uuid.New()

	transaction := Transaction{
		Inputs:  []State{fakeLinear{id: id}, fakeLinear{id: other}, fakeData{}},
		Outputs: []State{fakeLinear{id: id}},
	}

	require.Len(t, transaction.LinearInputs(id), 1)
	require.Len(t, transaction.LinearInputs(other), 1)
	require.Len(t, transaction.LinearOutputs(id), 1)
	require.Len(t, transaction.LinearOutputs(other), 0)
}

// -----------------------------------------------------------------------------
// Utility functions

var fakeErr = xerrors.New("fake error")

func keys(pubkeys ...crypto.PublicKey) []crypto.PublicKey {
	return pubkeys
}

type fakeData struct {
	err error
}

func (d fakeData) Fingerprint(w io.Writer) error {
	if d.err != nil {
		return d.err
	}

	_, err := w.Write([]byte{0xaa})
	return err
}

type fakeLinear struct {
	fakeData

	id uuid.UUID
}

func (l fakeLinear) GetLinearID() uuid.UUID {
	return l.id
}

type badWriter struct{}

func (badWriter) Write([]byte) (int, error) {
	return 0, fakeErr
}
