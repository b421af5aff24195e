// Package auth resolves bearer tokens issued by the hosted identity service
// (Supabase GoTrue) into an Identity.
//
// Two verifiers are available. JWTVerifier checks the HS256 signature locally
// with the project's JWT secret and never leaves the process. RemoteVerifier
// asks the identity service's /auth/v1/user endpoint, which also catches
// sessions revoked before token expiry. NewVerifier picks JWTVerifier when a
// secret is configured.
package auth
