// Package httputil fetches band data over HTTP.
//
// A data directory can be served from any static host. [RemoteFS] exposes
// such a host as an [io/fs.FS], so the same loader reads a local directory
// or a remote one:
//
//	client := httputil.NewClient(httputil.ClientOptions{Cache: c})
//	fsys, err := httputil.NewRemoteFS(ctx, client, "https://example.org/data/")
//	ds, err := band.Load(ctx, fsys, logger)
//
// # Caching
//
// [Client] stores response bodies in a [cache.Cache] under
// [cache.Keyer.HTTPKey] keys. Set Refresh to bypass cached bodies.
//
// # Retry
//
// Network errors and 5xx responses are retried with exponential backoff
// (see [Retry]). 404 responses map to [io/fs.ErrNotExist] and are never
// retried.
package httputil
