// Package metrics provides in-memory aggregation of proxy events: forwarded
// requests per upstream, originated rejections per status code, failover
// markings and health transitions. Events flow through a buffered channel so
// the forwarding path never blocks on bookkeeping.
package metrics
