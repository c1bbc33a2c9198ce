// Package staging sweeps task workspaces left behind by runs that were
// killed before their cleanup could execute.
package staging
