package store

import (
	"encoding/json"
	"fmt"

	"github.com/genledger/feesim/internal/record"
)

func encodeTables() ([]byte, error) {
	raw, err := json.Marshal(record.Tables())
	if err != nil {
		return nil, fmt.Errorf("marshal lookup tables: %w", err)
	}
	return raw, nil
}
