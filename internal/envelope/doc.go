// Package envelope serves as an umbrella for the lucky money game,
// covering the shared session pool and its envelope openings.
//
// The package is organized into two primary subpackages:
//   - domain: Defines the session entity, its invariants, the envelope
//     allocation algorithm, and the domain events emitted on mutation.
//   - service: Implements the session engine that serializes join, open,
//     and reset operations against the single live session.
package envelope
