// Package services defines shared utilities consumed by the enrichment core and
// its outer layers.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs, query titles, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     transport failure (worth retrying) from a configuration or validation
//     problem (not worth retrying) with errors.Is.
//
// Use these helpers when wiring new components so failure classification and
// observability stay uniform across the module.
package services
