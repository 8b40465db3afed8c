// Package session keeps short lived values indexed by self expiring keys.
package session

// KeyFactory generates & validates keys.
type KeyFactory[K comparable] interface {
	New() K
	Check(key K) error
}
