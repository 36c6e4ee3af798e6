//go:build windows

package providers

import (
	"context"

	"github.com/yusufpapurcu/wmi"
)

type wmiQuerier struct{}

// NewQuerier returns a querier backed by the local WMI service
func NewQuerier() Querier {
	return wmiQuerier{}
}

// Query blocks until WMI answers; callers bound it with the provider timeout
func (wmiQuerier) Query(ctx context.Context, namespace, query string, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wmi.QueryNamespace(query, dst, namespace)
}
