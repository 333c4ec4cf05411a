// Package mtree builds a Merkle tree over the components of a transaction so
// that a subset of them can be disclosed to a third party alongside the tree
// root, the commitment of the whole transaction.
//
// A filtered transaction carries only the disclosed leaves, each with its
// audit path back to the root. The receiver can then check that every leaf
// it sees belongs to the committed transaction, without learning anything
// about the redacted components. The oracle relies on this to sign over
// transactions of which it only sees the commands.
package mtree

import (
	"bytes"

	"go.dedis.ch/opal/core/tx"
	"go.dedis.ch/opal/crypto"
	"golang.org/x/xerrors"
)

// LeafKind is the type tag of a transaction component in the tree.
type LeafKind byte

const (
	// KindInput tags a consumed state.
	KindInput LeafKind = iota + 1

	// KindOutput tags a created state.
	KindOutput

	// KindCommand tags a command with its required signers.
	KindCommand

	// KindTimeWindow tags the validity window.
	KindTimeWindow
)

// String implements fmt.Stringer. It returns a short name of the kind.
func (k LeafKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindCommand:
		return "command"
	case KindTimeWindow:
		return "timewindow"
	default:
		return "unknown"
	}
}

// Leaf is a transaction component at a fixed position of the tree.
type Leaf struct {
	kind      LeafKind
	index     int
	component tx.Fingerprinter
}

// GetKind returns the type tag of the leaf.
func (l Leaf) GetKind() LeafKind {
	return l.kind
}

// GetIndex returns the position of the leaf in the tree.
func (l Leaf) GetIndex() int {
	return l.index
}

// GetCommand returns the command of the leaf when it is a command leaf.
func (l Leaf) GetCommand() (tx.Command, bool) {
	cmd, ok := l.component.(tx.Command)
	return cmd, ok
}

func (l Leaf) digest(factory crypto.HashFactory) ([]byte, error) {
	h := factory.New()

	_, err := h.Write([]byte{byte(l.kind)})
	if err != nil {
		return nil, xerrors.Errorf("couldn't write kind: %v", err)
	}

	err = l.component.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint component: %v", err)
	}

	return h.Sum(nil), nil
}

// Tree is the Merkle tree of a transaction. The leaves are the inputs, the
// outputs, the commands and the time window, in that order.
type Tree struct {
	factory crypto.HashFactory
	leaves  []Leaf
	levels  [][][]byte
}

// NewTree computes the Merkle tree of the transaction with the given hash
// factory.
func NewTree(t tx.Transaction, factory crypto.HashFactory) (*Tree, error) {
	var leaves []Leaf

	for _, input := range t.Inputs {
		leaves = append(leaves, Leaf{KindInput, len(leaves), input})
	}

	for _, output := range t.Outputs {
		leaves = append(leaves, Leaf{KindOutput, len(leaves), output})
	}

	for _, cmd := range t.Commands {
		leaves = append(leaves, Leaf{KindCommand, len(leaves), cmd})
	}

	leaves = append(leaves, Leaf{KindTimeWindow, len(leaves), t.Window})

	digests := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		digest, err := leaf.digest(factory)
		if err != nil {
			return nil, xerrors.Errorf("couldn't hash leaf %d: %v", i, err)
		}

		digests[i] = digest
	}

	tree := &Tree{
		factory: factory,
		leaves:  leaves,
		levels:  buildLevels(digests, factory),
	}

	return tree, nil
}

// buildLevels folds the digests pairwise up to the root. An odd node is
// promoted to the next level unchanged.
func buildLevels(digests [][]byte, factory crypto.HashFactory) [][][]byte {
	levels := [][][]byte{digests}

	for len(levels[len(levels)-1]) > 1 {
		current := levels[len(levels)-1]
		next := make([][]byte, 0, (len(current)+1)/2)

		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				next = append(next, current[i])
				continue
			}

			h := factory.New()
			h.Write(current[i])
			h.Write(current[i+1])
			next = append(next, h.Sum(nil))
		}

		levels = append(levels, next)
	}

	return levels
}

// GetRoot returns the root hash of the tree, the commitment of the whole
// transaction.
func (t *Tree) GetRoot() []byte {
	root := t.levels[len(t.levels)-1][0]

	return append([]byte{}, root...)
}

// GetLeaves returns the leaves of the tree in order.
func (t *Tree) GetLeaves() []Leaf {
	return append([]Leaf{}, t.leaves...)
}

// Filter returns the filtered transaction disclosing only the leaves
// matching the predicate, each with its audit path to the root.
func (t *Tree) Filter(pred func(Leaf) bool) *FilteredTransaction {
	ftx := &FilteredTransaction{
		factory: t.factory,
		root:    t.GetRoot(),
	}

	for _, leaf := range t.leaves {
		if !pred(leaf) {
			continue
		}

		ftx.leaves = append(ftx.leaves, DisclosedLeaf{
			Leaf: leaf,
			path: t.auditPath(leaf.index),
		})
	}

	return ftx
}

// auditPath collects the sibling hashes from the leaf up to the root. A
// promoted node has no sibling at that level.
func (t *Tree) auditPath(index int) []pathNode {
	var path []pathNode

	for depth := 0; depth < len(t.levels)-1; depth++ {
		level := t.levels[depth]
		sibling := index ^ 1

		if sibling < len(level) {
			path = append(path, pathNode{
				hash: append([]byte{}, level[sibling]...),
				left: sibling < index,
			})
		}

		index /= 2
	}

	return path
}

// pathNode is one step of an audit path. The flag tells on which side the
// sibling hash is concatenated.
type pathNode struct {
	hash []byte
	left bool
}

// DisclosedLeaf is a leaf of a filtered transaction together with its audit
// path.
type DisclosedLeaf struct {
	Leaf

	path []pathNode
}

// FilteredTransaction is a partial view of a transaction: the commitment of
// the whole transaction and the disclosed leaves only.
type FilteredTransaction struct {
	factory crypto.HashFactory
	root    []byte
	leaves  []DisclosedLeaf
}

// GetRoot returns the commitment the filtered transaction claims to belong
// to.
func (ftx *FilteredTransaction) GetRoot() []byte {
	return append([]byte{}, ftx.root...)
}

// GetLeaves returns the disclosed leaves.
func (ftx *FilteredTransaction) GetLeaves() []DisclosedLeaf {
	return append([]DisclosedLeaf{}, ftx.leaves...)
}

// Verify checks that every disclosed leaf hashes back to the root through
// its audit path. It returns an error as soon as one leaf does not belong to
// the commitment.
func (ftx *FilteredTransaction) Verify() error {
	if len(ftx.leaves) == 0 {
		return xerrors.New("no disclosed leaf")
	}

	for _, leaf := range ftx.leaves {
		digest, err := leaf.digest(ftx.factory)
		if err != nil {
			return xerrors.Errorf("couldn't hash leaf %d: %v", leaf.index, err)
		}

		for _, node := range leaf.path {
			h := ftx.factory.New()

			if node.left {
				h.Write(node.hash)
				h.Write(digest)
			} else {
				h.Write(digest)
				h.Write(node.hash)
			}

			digest = h.Sum(nil)
		}

		if !bytes.Equal(digest, ftx.root) {
			return xerrors.Errorf("leaf %d does not match the root", leaf.index)
		}
	}

	return nil
}
