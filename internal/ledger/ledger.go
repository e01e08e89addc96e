// Package ledger keeps the register of accepted invoices that feeds the
// aggregate-threshold, duplicate, sequence and budget checks of later runs.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gstaudit/internal/validator/invoice"
)

// Key locates the ledger buckets one invoice touches.
type Key struct {
	// FY labels the financial year, e.g. "2024-25".
	FY            string
	SellerPAN     string
	SellerGSTIN   string
	InvoiceNumber string
	CostCenter    string
}

// KeyFor derives the ledger key of inv. fyStart is the first day of the
// financial year the invoice falls in.
func KeyFor(inv *invoice.Invoice, fyStart time.Time) Key {
	gstin := strings.ToUpper(strings.TrimSpace(inv.Seller.GSTIN))
	pan := strings.ToUpper(strings.TrimSpace(inv.Seller.PAN))
	if pan == "" {
		pan = invoice.PANFromGSTIN(gstin)
	}
	return Key{
		FY:            FYLabel(fyStart),
		SellerPAN:     pan,
		SellerGSTIN:   gstin,
		InvoiceNumber: strings.ToUpper(strings.TrimSpace(inv.InvoiceNumber)),
		CostCenter:    strings.ToUpper(strings.TrimSpace(inv.CostCenter)),
	}
}

// FYLabel formats a financial year start as "2024-25".
func FYLabel(start time.Time) string {
	return fmt.Sprintf("%d-%02d", start.Year(), (start.Year()+1)%100)
}

// Ledger answers history questions and records accepted invoices.
type Ledger interface {
	// History returns what earlier accepted invoices say about k. The
	// returned History always has Known set.
	History(ctx context.Context, k Key) (invoice.History, error)
	// Record books an accepted invoice of the given amount.
	Record(ctx context.Context, k Key, amount float64) error
}

// Memory is an in-process Ledger.
type Memory struct {
	mu       sync.RWMutex
	payments map[string]float64
	spend    map[string]float64
	seen     map[string]int
	seq      map[string]int64
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		payments: map[string]float64{},
		spend:    map[string]float64{},
		seen:     map[string]int{},
		seq:      map[string]int64{},
	}
}

func (m *Memory) History(ctx context.Context, k Key) (invoice.History, error) {
	if err := ctx.Err(); err != nil {
		return invoice.History{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := invoice.History{
		Known:          true,
		YTDPayments:    m.payments[k.FY+"|"+k.SellerPAN],
		DuplicateCount: m.seen[k.SellerGSTIN+"|"+k.InvoiceNumber],
	}
	if k.CostCenter != "" {
		h.CostCenterSpend = m.spend[k.FY+"|"+k.CostCenter]
	}
	h.MaxSequence, h.HasSequence = m.seq[k.FY+"|"+k.SellerGSTIN]
	return h, nil
}

func (m *Memory) Record(ctx context.Context, k Key, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[k.FY+"|"+k.SellerPAN] += amount
	m.seen[k.SellerGSTIN+"|"+k.InvoiceNumber]++
	if k.CostCenter != "" {
		m.spend[k.FY+"|"+k.CostCenter] += amount
	}
	if n, ok := invoice.SequenceNumber(k.InvoiceNumber); ok {
		sk := k.FY + "|" + k.SellerGSTIN
		if prev, seen := m.seq[sk]; !seen || n > prev {
			m.seq[sk] = n
		}
	}
	return nil
}
