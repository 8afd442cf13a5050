// Package routing decides who approves a booking that needs approval.
//
// The owner's manager is preferred when one is assigned within the same
// company. Otherwise the earliest created travel admin of the company is
// chosen. When neither exists routing fails with ErrNoApproverAvailable and
// the caller must not persist anything.
package routing
