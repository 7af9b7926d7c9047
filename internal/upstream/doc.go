// Package upstream tracks the alive/dead partition of configured upstream
// addresses. Selection is uniform random over the alive set; connect
// failures move addresses to the dead set and the health checker republishes
// the whole partition each probing pass.
package upstream
