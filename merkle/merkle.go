// Package merkle implements the binary merkle tree used to commit chunk
// prev_state_roots and transaction/receipt outcome and block proofs.
// Grounded on the NEAR reference merklize/verify_path/compute_root_from_path
// algorithms: odd-count levels promote the unpaired node unchanged rather
// than zero-padding to a power of two, which distinguishes this engine from
// the balanced zero-padded merkle trees common in other ecosystems.
package merkle

import "github.com/near/light-client/neartypes"

// Direction records which side of a combine a path step's sibling sits on.
type Direction int

const (
	// Left means the sibling hash is combined on the left: combine(sibling, current).
	Left Direction = iota
	// Right means the sibling hash is combined on the right: combine(current, sibling).
	Right
)

// PathItem is one step of a MerklePath: a sibling hash and the direction it
// sits on relative to the node being proven.
type PathItem struct {
	Hash      neartypes.CryptoHash
	Direction Direction
}

// Path is an ordered sequence of PathItem from a leaf to the root.
type Path []PathItem

// ComputeRoot walks path from a leaf hash up to the implied root:
// on a Left step the sibling is to the left (new = combine(sibling, current));
// on a Right step it is to the right (new = combine(current, sibling)).
func ComputeRoot(path Path, itemHash neartypes.CryptoHash) neartypes.CryptoHash {
	res := itemHash
	for _, step := range path {
		switch step.Direction {
		case Left:
			res = neartypes.Combine(step.Hash, res)
		case Right:
			res = neartypes.Combine(res, step.Hash)
		}
	}
	return res
}

// VerifyPath reports whether path proves that itemHash is included under root.
func VerifyPath(root neartypes.CryptoHash, path Path, itemHash neartypes.CryptoHash) bool {
	return ComputeRoot(path, itemHash) == root
}

// Merklize builds a binary merkle tree over leafHashes (each already the
// sha256 of its encoded leaf) and returns the root together with the
// MerklePath for every leaf, mirroring the reference merklize function.
// An empty input yields the zero hash and no paths.
func Merklize(leafHashes []neartypes.CryptoHash) (neartypes.CryptoHash, []Path) {
	if len(leafHashes) == 0 {
		return neartypes.ZeroHash, nil
	}

	arrLen := len(leafHashes)
	hashes := make([]neartypes.CryptoHash, len(leafHashes))
	copy(hashes, leafHashes)

	length := nextPowerOfTwo(arrLen)
	if length == 1 {
		return hashes[0], []Path{{}}
	}

	paths := make([]Path, arrLen)
	for i := 0; i < arrLen; i++ {
		if i%2 == 0 {
			if i+1 < arrLen {
				paths[i] = Path{{Hash: hashes[i+1], Direction: Right}}
			}
		} else {
			paths[i] = Path{{Hash: hashes[i-1], Direction: Left}}
		}
	}

	counter := 1
	for length > 1 {
		length /= 2
		counter *= 2
		for i := 0; i < length; i++ {
			var h neartypes.CryptoHash
			switch {
			case 2*i >= arrLen:
				continue
			case 2*i+1 >= arrLen:
				h = hashes[2*i]
			default:
				h = neartypes.Combine(hashes[2*i], hashes[2*i+1])
			}
			hashes[i] = h

			if length > 1 {
				if i%2 == 0 {
					for j := 0; j < counter; j++ {
						index := (i+1)*counter + j
						if index < arrLen {
							paths[index] = append(paths[index], PathItem{Hash: h, Direction: Left})
						}
					}
				} else {
					for j := 0; j < counter; j++ {
						index := (i-1)*counter + j
						if index < arrLen {
							paths[index] = append(paths[index], PathItem{Hash: h, Direction: Right})
						}
					}
				}
			}
		}
		arrLen = (arrLen + 1) / 2
	}
	return hashes[0], paths
}

// Root returns the merkle root over an ordered sequence of already-encoded
// leaves, hashing each as sha256(encoding) before combining. This is the
// form used for the prev_state_root invariant (spec 3), where the leaves
// are the raw 32-byte chunk roots.
func Root(leafEncodings [][]byte) neartypes.CryptoHash {
	hashes := make([]neartypes.CryptoHash, len(leafEncodings))
	for i, enc := range leafEncodings {
		hashes[i] = neartypes.Sha256(enc)
	}
	root, _ := Merklize(hashes)
	return root
}

// RootOfHashes builds the tree over hashes that are already leaf hashes
// (no further sha256 is applied), matching the chunk-root case where each
// leaf is itself a CryptoHash whose canonical encoding is its own 32 bytes.
func RootOfHashes(hashes []neartypes.CryptoHash) neartypes.CryptoHash {
	leafHashes := make([]neartypes.CryptoHash, len(hashes))
	for i, h := range hashes {
		leafHashes[i] = neartypes.Sha256(h.Bytes())
	}
	root, _ := Merklize(leafHashes)
	return root
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
