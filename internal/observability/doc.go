// Package observability records pipeline outcomes and task changes in an
// append-only JSON Lines event log and derives metrics and alerts from it
// on demand.
package observability
