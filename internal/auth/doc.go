// Package auth issues and validates the bearer tokens of the travel API.
//
// Tokens are HS256 JWTs carrying the user's subject, company and role.
// The HTTP middleware resolves the subject to a stored user on every
// request, so claims only identify the caller and never grant authority
// on their own.
package auth
