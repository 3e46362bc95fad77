// Package middleware provides HTTP middleware for the rating API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path labels
//   - Response compression (gzip) for JSON bodies
package middleware
