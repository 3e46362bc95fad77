// Package auth checks rater credentials and issues the bearer tokens that
// protect the rating API.
//
// Credentials are bcrypt hashes loaded from configuration; tokens are HS256
// JWTs carrying the rater name in a "user" claim and an expiry.
package auth
