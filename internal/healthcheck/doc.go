// Package healthcheck implements periodic active health checking for
// upstream servers. Each pass probes every known address over a fresh TCP
// connection and republishes the pool's alive/dead partition atomically, so
// dead upstreams recover and newly failing ones are demoted within one
// probing interval.
package healthcheck
