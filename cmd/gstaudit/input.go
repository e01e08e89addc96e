package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gstaudit/internal/validator/invoice"
)

// readInvoices loads invoices from the given paths. A path may be a JSON file
// holding one invoice object or an array of invoices, or a directory whose
// *.json files are read in name order.
func readInvoices(paths []string) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			invs, err := readInvoiceFile(p)
			if err != nil {
				return nil, err
			}
			out = append(out, invs...)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			invs, err := readInvoiceFile(filepath.Join(p, name))
			if err != nil {
				return nil, err
			}
			out = append(out, invs...)
		}
	}
	return out, nil
}

func readInvoiceFile(path string) ([]*invoice.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var invs []*invoice.Invoice
		if err := json.Unmarshal(data, &invs); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return invs, nil
	}
	var inv invoice.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []*invoice.Invoice{&inv}, nil
}
