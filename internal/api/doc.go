// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - POST /api/v1/content to store a bookmark (idempotent per canonical URL).
//   - GET /api/v1/content and /api/v1/content/{id} to read bookmarks.
//   - GET /health and /readyz for probes; readyz fails while draining.
//   - GET /metrics for Prometheus scraping.
//
// Only the /api group sits behind the lifecycle coordinator, so probes keep
// answering while in-flight API requests drain.
package api
