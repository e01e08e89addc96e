// Package redis implements ledger.Ledger on Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gstaudit/internal/ledger"
	"gstaudit/internal/validator/invoice"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "gstaudit:"
}

// Ledger stores year-to-date payments per seller PAN, spend per cost center,
// a count of accepted invoice numbers per seller GSTIN and the highest
// invoice sequence number seen from each GSTIN in a year.
type Ledger struct {
	client *redis.Client
	prefix string
}

// New connects a ledger with the given options.
func New(opts Options) *Ledger {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = "gstaudit:"
	}
	return &Ledger{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) paymentsKey(fy string) string { return fmt.Sprintf("%sledger:%s:payments", l.prefix, fy) }
func (l *Ledger) spendKey(fy string) string    { return fmt.Sprintf("%sledger:%s:spend", l.prefix, fy) }
func (l *Ledger) seenKey() string              { return l.prefix + "ledger:invoices" }

func (l *Ledger) seqKey(fy string) string      { return fmt.Sprintf("%sledger:%s:sequence", l.prefix, fy) }

// keepMax sets field ARGV[1] of hash KEYS[1] to ARGV[2] unless it already
// holds a larger number.
var keepMax = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if (not cur) or tonumber(ARGV[2]) > tonumber(cur) then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
return 0
`)

func seenField(k ledger.Key) string { return k.SellerGSTIN + "|" + k.InvoiceNumber }

func (l *Ledger) History(ctx context.Context, k ledger.Key) (invoice.History, error) {
	pipe := l.client.Pipeline()
	payments := pipe.HGet(ctx, l.paymentsKey(k.FY), k.SellerPAN)
	seen := pipe.HGet(ctx, l.seenKey(), seenField(k))
	var spend *redis.StringCmd
	if k.CostCenter != "" {
		spend = pipe.HGet(ctx, l.spendKey(k.FY), k.CostCenter)
	}
	seq := pipe.HGet(ctx, l.seqKey(k.FY), k.SellerGSTIN)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return invoice.History{}, fmt.Errorf("reading ledger: %w", err)
	}

	h := invoice.History{Known: true}
	var err error
	if h.YTDPayments, err = floatOrZero(payments); err != nil {
		return invoice.History{}, err
	}
	n, err := seen.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return invoice.History{}, fmt.Errorf("reading ledger invoice count: %w", err)
	}
	h.DuplicateCount = n
	switch top, err := seq.Int64(); {
	case err == nil:
		h.MaxSequence, h.HasSequence = top, true
	case !errors.Is(err, redis.Nil):
		return invoice.History{}, fmt.Errorf("reading ledger sequence: %w", err)
	}
	if spend != nil {
		if h.CostCenterSpend, err = floatOrZero(spend); err != nil {
			return invoice.History{}, err
		}
	}
	return h, nil
}

func (l *Ledger) Record(ctx context.Context, k ledger.Key, amount float64) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrByFloat(ctx, l.paymentsKey(k.FY), k.SellerPAN, amount)
		pipe.HIncrBy(ctx, l.seenKey(), seenField(k), 1)
		if k.CostCenter != "" {
			pipe.HIncrByFloat(ctx, l.spendKey(k.FY), k.CostCenter, amount)
		}
		if n, ok := invoice.SequenceNumber(k.InvoiceNumber); ok {
			keepMax.Eval(ctx, pipe, []string{l.seqKey(k.FY)}, k.SellerGSTIN, n)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording invoice %s in ledger: %w", k.InvoiceNumber, err)
	}
	return nil
}

func floatOrZero(cmd *redis.StringCmd) (float64, error) {
	v, err := cmd.Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading ledger amount: %w", err)
	}
	return v, nil
}
