// Package abi provides internal utilities shared by the codec's encode and
// decode walks: alignment arithmetic, overflow-checked sizing, word access on
// region bytes and safety limits.
//
// This package is internal to the codec.
package abi
