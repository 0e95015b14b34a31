// Package common contains the bookkeeping shared by the buffer and request
// pools, and the arithmetic mapping block positions onto byte offsets.
package common
