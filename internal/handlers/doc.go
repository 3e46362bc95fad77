// Package handlers provides the HTTP API raters use.
//
// It includes handlers for:
//   - Login and bearer token verification
//   - Handing out batches of unrated images
//   - Serving thumbnails, originals and compressed copies
//   - Applying rating decisions
//   - Health checks, version, library stats and recent rating history
package handlers
