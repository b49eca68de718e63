package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type NumberPoolKind string

const (
	NumberPoolQuote   NumberPoolKind = "quote"
	NumberPoolPolicy  NumberPoolKind = "policy"
	NumberPoolClaim   NumberPoolKind = "claim"
	NumberPoolInvoice NumberPoolKind = "invoice"
)

var AllNumberPoolKinds = []NumberPoolKind{NumberPoolQuote, NumberPoolPolicy, NumberPoolClaim, NumberPoolInvoice}

type NumberPoolKey struct {
	TenantID    string                `json:"tenantId"`
	ProductID   string                `json:"productId"`
	Environment DeploymentEnvironment `json:"environment"`
	Kind        NumberPoolKind        `json:"kind"`
}

func (k NumberPoolKey) String() string {
	return strings.Join([]string{k.TenantID, k.ProductID, string(k.Environment), string(k.Kind)}, "/")
}

func PoolKeyFor(rc ReleaseContext, kind NumberPoolKind) NumberPoolKey {
	return NumberPoolKey{TenantID: rc.TenantID, ProductID: rc.ProductID, Environment: rc.Environment, Kind: kind}
}

// NumberPool is a loaded range of reference numbers [Next, Last] handed out
// in order.
type NumberPool struct {
	NumberPoolKey
	Prefix    string    `json:"prefix"`
	Width     int       `json:"width"`
	Next      int64     `json:"next"`
	Last      int64     `json:"last"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p NumberPool) Remaining() int64 {
	if p.Last < p.Next {
		return 0
	}
	return p.Last - p.Next + 1
}

func (p NumberPool) Format(n int64) string {
	width := p.Width
	if width <= 0 {
		width = 6
	}
	return fmt.Sprintf("%s%0*d", p.Prefix, width, n)
}

func (p NumberPool) Validate() error {
	if p.TenantID == "" || p.ProductID == "" || p.Kind == "" {
		return fmt.Errorf("%w: number pool needs tenant, product and kind", ErrValidation)
	}
	if p.Next <= 0 {
		return fmt.Errorf("%w: number pool must start at 1 or above", ErrValidation)
	}
	if p.Last < p.Next-1 {
		return fmt.Errorf("%w: number pool range is inverted", ErrValidation)
	}
	return nil
}

// NumberPoolRepo stores number pools. Consume is atomic: concurrent callers
// never receive the same number.
type NumberPoolRepo interface {
	Get(ctx context.Context, key NumberPoolKey) (NumberPool, error)
	List(ctx context.Context) ([]NumberPool, error)
	Upsert(ctx context.Context, pool NumberPool) error
	// Consume returns the issued number and the numbers left after it.
	Consume(ctx context.Context, key NumberPoolKey) (number int64, remaining int64, err error)
	// Extend raises Last by count and returns the updated pool.
	Extend(ctx context.Context, key NumberPoolKey, count int64) (NumberPool, error)
}

var (
	ErrNumberPoolNotFound  = fmt.Errorf("%w: number pool not found", ErrNotFound)
	ErrNumberPoolExhausted = fmt.Errorf("%w: number pool exhausted", ErrConflict)
)

func errNumberPoolExhausted(key NumberPoolKey) *Error {
	e := newError(ErrConflict, "number.pool.exhausted", "No numbers available",
		fmt.Sprintf("there are no %s numbers left for product %q in %s; load more numbers",
			key.Kind, key.ProductID, key.Environment))
	e.kind = ErrNumberPoolExhausted
	return e
}
