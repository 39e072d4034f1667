package domain

import (
	"errors"
	"math/rand"
)

var (
	// ErrNoEnvelopes indicates an allocation was requested with no
	// envelopes remaining.
	ErrNoEnvelopes = errors.New("no envelopes remain")
	// ErrPoolUnderfunded indicates the remaining money cannot cover the
	// minimum amount for every remaining envelope.
	ErrPoolUnderfunded = errors.New("remaining money cannot cover remaining envelopes")
)

// Allocate computes the amount yielded by opening one envelope.
//
// # Determinism
//
// Allocate is deterministic with respect to the provided random source.
// Given the same rng state and the same arguments it always produces the
// same amount.
//
// # Fairness
//
// The returned amount always leaves at least MinAmount for every envelope
// still to be opened: MinAmount * (remainingEnvelopes - 1) is reserved
// before drawing, and the draw is uniform over the closed interval
// [MinAmount, min(MaxAmount, remainingMoney - reserved)].
//
// The last envelope drains the pool exactly, so it may exceed MaxAmount.
//
// # Errors
//
//   - remainingEnvelopes must be at least 1, otherwise ErrNoEnvelopes is
//     returned.
//   - remainingMoney must cover MinAmount for every remaining envelope,
//     otherwise ErrPoolUnderfunded is returned. Valid session totals
//     satisfy this by construction; the check guards against misuse.
func Allocate(remainingMoney int64, remainingEnvelopes int, rng *rand.Rand) (int64, error) {
	if remainingEnvelopes < 1 {
		return 0, ErrNoEnvelopes
	}
	if remainingMoney < int64(remainingEnvelopes)*MinAmount {
		return 0, ErrPoolUnderfunded
	}
	if remainingEnvelopes == 1 {
		return remainingMoney, nil
	}

	reserved := int64(remainingEnvelopes-1) * MinAmount
	upper := remainingMoney - reserved
	if upper > MaxAmount {
		upper = MaxAmount
	}

	return MinAmount + rng.Int63n(upper-MinAmount+1), nil
}
