// Package policy implements the travel policy compliance evaluator.
//
// The evaluator compares a booking snapshot with a company's policy rules and
// returns a verdict with ordered violations:
//   - flight price above the flight maximum
//   - flight booked with less lead time than required
//   - hotel price above the hotel maximum
//
// Evaluation is pure. It reads no storage and keeps no state, so it may be
// called concurrently and repeatedly with identical results.
package policy
