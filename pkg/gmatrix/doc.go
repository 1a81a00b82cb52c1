// Package gmatrix computes the G-matrix loss of a candidate fiducial vector
// and its gradient.
//
// For a vector v in C^d the G-matrix is the symmetric table
//
//	G[k,l] = sum_m v[m] * conj(v[m+k]) * conj(v[m+l]) * v[m+k+l]
//
// with all indices taken modulo d. Only the upper triangle (k <= l) is stored.
// The loss
//
//	L = 2 * sum_{k<=l} |G[k,l]|^2 - sum_k |G[k,k]|^2 - 2/(d+1)
//
// vanishes exactly when the Weyl-Heisenberg orbit of a unit v is a SIC-POVM.
//
// A Matrix is a snapshot: mutating the vector it was built from does not
// update it. Call Update after every mutation before reading the loss or
// computing a gradient.
package gmatrix
