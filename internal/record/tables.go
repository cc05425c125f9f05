package record

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/labeling"
	"github.com/genledger/feesim/internal/pathgen"
)

// LookupTables map the indices persisted in records back to names. The
// tables are stable across releases; new indices only append.
type LookupTables struct {
	NodeMap      map[int]string `json:"node_map"`
	LabelMap     map[int]string `json:"label_map"`
	RoleMap      map[int]string `json:"role_map"`
	InvariantMap map[int]string `json:"invariant_bits"`
}

// Tables builds the lookup tables from the closed enumerations.
func Tables() LookupTables {
	t := LookupTables{
		NodeMap:      make(map[int]string),
		LabelMap:     make(map[int]string),
		RoleMap:      make(map[int]string),
		InvariantMap: make(map[int]string),
	}
	for n := 0; n < pathgen.NumNodes; n++ {
		t.NodeMap[n] = pathgen.Node(n).String()
	}
	for l := 0; l < labeling.NumLabels; l++ {
		t.LabelMap[l] = labeling.Label(l).String()
	}
	for r := fees.RoleLeader; r <= fees.RoleAppealant; r++ {
		t.RoleMap[int(r)] = r.String()
	}
	for _, inv := range invariants.NewRegistry().All() {
		t.InvariantMap[inv.ID()] = inv.Name()
	}
	return t
}

// WriteTables serializes the lookup tables to a JSON file.
func WriteTables(path string) error {
	raw, err := json.MarshalIndent(Tables(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lookup tables: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write lookup tables: %w", err)
	}
	return nil
}
