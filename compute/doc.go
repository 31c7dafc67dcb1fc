// Package compute implements null-aware comparison kernels over list-view
// arrays.
//
// The "total" comparisons never produce nulls: a row where either side is
// null compares equal under TotEq and not-unequal under TotNe, so TotNe is
// always the exact complement of TotEq.
package compute
