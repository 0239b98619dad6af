// Package content derives deterministic content identifiers (CIDs) for the
// graph domain's addressable value types.
//
// A CID is computed over a canonical payload: the minimal subset of a content
// type's fields that determines its identity. Volatile fields such as
// timestamps and wrapper identifiers are deliberately excluded so two
// logically identical pieces of content always hash identically regardless of
// when or how they were wrapped.
package content

import (
	"fmt"

	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

// Codec numbers tag a CID with the logical content type it addresses.
// They live in the multicodec private-use area.
const (
	CodecGraphMetadata    uint64 = 0x300101
	CodecNodeContent      uint64 = 0x300102
	CodecEdgeRelationship uint64 = 0x300103
	CodecEvent            uint64 = 0x300104
)

// Addressable is implemented by content types that can be content-addressed.
type Addressable interface {
	// CanonicalPayload returns the deterministic byte encoding of the
	// fields that determine this content's identity.
	CanonicalPayload() ([]byte, error)
	// Codec identifies the logical content type of the payload.
	Codec() uint64
}

// Sum computes the CID of an addressable piece of content: the canonical
// payload is hashed with SHA2-256 into a self-describing multihash record,
// then wrapped into a CIDv1 tagged with the content's codec.
//
// Sum is pure and deterministic. A failure is a HASHING_FAILED domain error
// and must never be swallowed: a missing CID would allow silent duplicate or
// inconsistent content into the store.
func Sum(a Addressable) (cid.Cid, error) {
	if a == nil {
		return cid.Undef, apperrors.New(apperrors.CodeHashingFailed, "content is required")
	}
	payload, err := a.CanonicalPayload()
	if err != nil {
		return cid.Undef, apperrors.Wrap(apperrors.CodeHashingFailed, "canonical payload", err)
	}
	digest, err := mh.Sum(payload, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, apperrors.Wrap(apperrors.CodeHashingFailed, "multihash sum", err)
	}
	return cid.NewCidV1(a.Codec(), digest), nil
}

// SumString computes the CID of addressable content and returns its canonical
// string encoding.
func SumString(a Addressable) (string, error) {
	value, err := Sum(a)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Decode parses a CID string back into its structured form. Used by
// verification paths that need the codec or digest of a stored identifier.
func Decode(value string) (cid.Cid, error) {
	parsed, err := cid.Decode(value)
	if err != nil {
		return cid.Undef, apperrors.Wrap(apperrors.CodeHashingFailed, fmt.Sprintf("decode cid %q", value), err)
	}
	return parsed, nil
}
