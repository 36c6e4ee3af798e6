//go:build !windows

package providers

// NewQuerier returns nil; there is no management subsystem to query
func NewQuerier() Querier {
	return nil
}
