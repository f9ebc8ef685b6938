package ledger

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a transaction export. Both YAML and JSON exports are
// accepted; the document is either a bare list or {transactions: [...]}.
func LoadFile(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return Parse(data)
}

// Parse decodes a transaction export held in memory.
func Parse(data []byte) ([]Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var list []Transaction
	if data[0] == '[' || data[0] == '-' {
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse transactions: %w", err)
		}
		return list, nil
	}

	var doc struct {
		Transactions []Transaction `yaml:"transactions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}
	return doc.Transactions, nil
}

// OpenFile loads path into a MemoryStore. An empty path yields an empty
// store.
func OpenFile(path string) (*MemoryStore, error) {
	if path == "" {
		return NewMemoryStore(nil), nil
	}
	txns, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(txns), nil
}
