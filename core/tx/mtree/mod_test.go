package mtree

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/crypto"
	"go.dedis.ch/opal/testing/fake"
	"golang.org/x/xerrors"
)

func TestLeafKind_String(t *testing.T) {
	require.Equal(t, "input", KindInput.String())
	require.Equal(t, "output", KindOutput.String())
	require.Equal(t, "command", KindCommand.String())
	require.Equal(t, "timewindow", KindTimeWindow.String())
	require.Equal(t, "unknown", LeafKind(0).String())
}

func TestNewTree(t *testing.T) {
	tree, err := NewTree(makeTransaction(), crypto.NewSha256Factory())
	require.NoError(t, err)

	leaves := tree.GetLeaves()
	require.Len(t, leaves, 5)
	require.Equal(t, KindInput, leaves[0].GetKind())
	require.Equal(t, KindInput, leaves[1].GetKind())
	require.Equal(t, KindOutput, leaves[2].GetKind())
	require.Equal(t, KindCommand, leaves[3].GetKind())
	require.Equal(t, KindTimeWindow, leaves[4].GetKind())

	for i, leaf := range leaves {
		require.Equal(t, i, leaf.GetIndex())
	}

	_, ok := leaves[3].GetCommand()
	require.True(t, ok)
	_, ok = leaves[0].GetCommand()
	require.False(t, ok)

	_, err = NewTree(makeTransaction(), fake.NewHashFactory(fake.NewBadHash()))
	require.EqualError(t, err, "couldn't hash leaf 0: couldn't write kind: fake error")
}

func TestTree_GetRoot(t *testing.T) {
	factory := crypto.NewSha256Factory()

	tree, err := NewTree(makeTransaction(), factory)
	require.NoError(t, err)

	again, err := NewTree(makeTransaction(), factory)
	require.NoError(t, err)

	// The commitment is deterministic.
	require.Equal(t, tree.GetRoot(), again.GetRoot())
	require.Len(t, tree.GetRoot(), 32)

	// Any change of a component changes the commitment.
	changed := makeTransaction()
	changed.Outputs[0] = component{value: 0xff}

	other, err := NewTree(changed, factory)
	require.NoError(t, err)
	require.NotEqual(t, tree.GetRoot(), other.GetRoot())
}

func TestTree_Filter(t *testing.T) {
	tree, err := NewTree(makeTransaction(), crypto.NewSha256Factory())
	require.NoError(t, err)

	ftx := tree.Filter(func(leaf Leaf) bool {
		return leaf.GetKind() == KindCommand
	})

	require.Len(t, ftx.GetLeaves(), 1)
	require.Equal(t, tree.GetRoot(), ftx.GetRoot())
	require.NoError(t, ftx.Verify())
}

func TestFilteredTransaction_Verify(t *testing.T) {
	tree, err := NewTree(makeTransaction(), crypto.NewSha256Factory())
	require.NoError(t, err)

	// Every single leaf must verify on its own, including the promoted
	// ones.
	for i := range tree.GetLeaves() {
		index := i

		ftx := tree.Filter(func(leaf Leaf) bool {
			return leaf.GetIndex() == index
		})

		require.NoError(t, ftx.Verify(), "leaf %d", index)
	}

	ftx := tree.Filter(func(Leaf) bool { return true })
	require.NoError(t, ftx.Verify())

	ftx = tree.Filter(func(Leaf) bool { return false })
	require.EqualError(t, ftx.Verify(), "no disclosed leaf")
}

func TestFilteredTransaction_Verify_Tampered(t *testing.T) {
	tree, err := NewTree(makeTransaction(), crypto.NewSha256Factory())
	require.NoError(t, err)

	ftx := tree.Filter(func(leaf Leaf) bool {
		return leaf.GetIndex() == 2
	})

	// A leaf that does not belong to the commitment is rejected.
	ftx.root[0] ^= 0xff
	require.EqualError(t, ftx.Verify(), "leaf 2 does not match the root")

	ftx.root[0] ^= 0xff
	ftx.leaves[0].component = component{value: 0xff}
	require.EqualError(t, ftx.Verify(), "leaf 2 does not match the root")

	ftx.leaves[0].component = component{err: xerrors.New("fake error")}
	require.EqualError(t, ftx.Verify(),
		"couldn't hash leaf 2: couldn't fingerprint component: fake error")
}

// -----------------------------------------------------------------------------
// Utility functions

type component struct {
	value byte
	err   error
}

func (c component) Fingerprint(w io.Writer) error {
	if c.err != nil {
		return c.err
	}

	_, err := w.Write([]byte{c.value})
	return err
}

func makeTransaction() tx.Transaction {
	return tx.Transaction{
		Inputs:  []tx.State{component{value: 1}, component{value: 2}},
		Outputs: []tx.State{component{value: 3}},
		Commands: []tx.Command{{
			Value:   component{value: 4},
			Signers: []crypto.PublicKey{fake.NewPublicKey(0)},
		}},
		Window: tx.WindowUntil(time.Unix(1000, 0)),
	}
}
