package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/pathgen"
	"github.com/genledger/feesim/internal/record"
	"github.com/genledger/feesim/internal/store"
	"github.com/genledger/feesim/pkg/db/pebble"
	"github.com/genledger/feesim/pkg/log"
)

func main() {
	maxRounds := flag.Int("max-rounds", 5, "maximum rounds per generated path")
	outDir := flag.String("out", "records", "directory for generated record files (empty to skip)")
	dbPath := flag.String("db", "", "pebble database for generated records (empty to skip)")
	leaderTimeout := flag.Uint64("leader-timeout", 100, "leader compensation quantum")
	validatorsTimeout := flag.Uint64("validators-timeout", 200, "validator compensation quantum")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

	if err := run(*maxRounds, *outDir, *dbPath, *leaderTimeout, *validatorsTimeout); err != nil {
		log.Sim.Error().Err(err).Msg("generation failed")
		os.Exit(1)
	}
}

func run(maxRounds int, outDir, dbPath string, leaderTimeout, validatorsTimeout uint64) error {
	var records *store.Records
	if dbPath != "" {
		kv, err := pebble.NewKVStore(dbPath)
		if err != nil {
			return fmt.Errorf("open record database: %w", err)
		}
		defer kv.Close()
		records = store.NewRecords(kv)
		if err := records.PutTables(); err != nil {
			return err
		}
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := record.WriteTables(filepath.Join(outDir, "lookup_tables.json")); err != nil {
			return err
		}
	}

	pool := pathgen.AddressPool(pathgen.RequiredPool(maxRounds))
	registry := invariants.NewRegistry()
	allPass := uint32(1)<<uint(len(registry.All())) - 1

	paths := pathgen.Paths(maxRounds)
	log.Sim.Info().Int("paths", len(paths)).Int("max_rounds", maxRounds).Msg("enumerated transaction paths")

	// Records destined for the database are committed in batches rather
	// than one write per path.
	const batchSize = 512
	var pending []record.Record

	failures := 0
	for _, path := range paths {
		rounds, budget := pathgen.Build(path, pathgen.BuildParams{
			LeaderTimeout:     leaderTimeout,
			ValidatorsTimeout: validatorsTimeout,
			Pool:              pool,
		})
		st := fees.Process(pool, rounds, budget)
		bits := registry.Bitfield(st)
		if bits != allPass {
			failures++
			log.Sim.Warn().
				Str("path", fmt.Sprintf("%v", path)).
				Uint32("invariants", bits).
				Msg("invariant violations on path")
		}

		rec, err := record.FromState(path, st, bits)
		if err != nil {
			return err
		}
		if outDir != "" {
			raw, err := rec.Encode()
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, rec.Filename()), raw, 0o644); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
		if records != nil {
			pending = append(pending, rec)
			if len(pending) >= batchSize {
				if err := records.PutRecords(pending); err != nil {
					return err
				}
				pending = pending[:0]
			}
		}
	}
	if records != nil && len(pending) > 0 {
		if err := records.PutRecords(pending); err != nil {
			return err
		}
	}

	log.Sim.Info().
		Int("paths", len(paths)).
		Int("with_violations", failures).
		Msg("generation complete")
	return nil
}
