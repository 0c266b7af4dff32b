// Package auth provides authentication and authorization primitives
// for the catalog inventory API.
//
// This package implements:
//   - Credential validation against a CredentialStore (bcrypt)
//   - Signed, self-contained access tokens (HS256 JWT)
//   - Token issuance and refresh
//   - Per-request authentication of bearer tokens into a SecurityContext
//   - Role-Based Access Control (any-of role predicates)
//
// Nothing in this package holds server-side session state. The signing key is
// built once at startup and shared read-only across requests.
package auth
