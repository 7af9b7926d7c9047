// Package admission rejects requests from clients that exceed a per-IP
// quota within a fixed, globally aligned time window. A zero quota disables
// admission control entirely.
package admission
