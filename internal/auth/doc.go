// Package auth provides operator authentication for the dashboard API.
//
// It implements a 2-tier role model (operator → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Short-lived HS256 JWT access tokens validated by signature only
//   - A first-boot admin seed with a generated one-time password
//
// Device-facing endpoints are deliberately unauthenticated: field sensor
// nodes carry no credentials and identify themselves by serial alone.
// Anything that mutates pairing or configuration state goes through the
// operator routes, which require a valid access token.
package auth
