// services/catalog_service.go
package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"farcaster-rewards-system/ledger"
)

// CatalogSnapshot bundles one immutable tier catalog with the contract
// addresses it was built against. Refresh always swaps in a whole new
// snapshot; nothing reads mutable shared fields.
type CatalogSnapshot struct {
	Catalog   ledger.Catalog
	Ledger    *ledger.Ledger
	Contracts map[ledger.Tier]string
	FetchedAt time.Time
}

// CatalogService owns the current snapshot and rebuilds it from the chain
// relay on a schedule.
type CatalogService struct {
	chain   *ChainClient
	current atomic.Pointer[CatalogSnapshot]
}

func NewCatalogService(chain *ChainClient) *CatalogService {
	s := &CatalogService{chain: chain}
	cat := ledger.DefaultCatalog()
	s.current.Store(&CatalogSnapshot{
		Catalog:   cat,
		Ledger:    ledger.NewLedger(cat),
		Contracts: map[ledger.Tier]string{},
		FetchedAt: time.Now().UTC(),
	})
	return s
}

// Snapshot returns the current immutable snapshot.
func (s *CatalogService) Snapshot() *CatalogSnapshot {
	return s.current.Load()
}

// Ledger returns the evaluator for the current snapshot.
func (s *CatalogService) Ledger() *ledger.Ledger {
	return s.current.Load().Ledger
}

// Refresh rebuilds the snapshot from relay deployment data. Tier economics
// stay as configured; contract addresses and global supply caps follow the
// deployment. On relay failure the previous snapshot stays in place.
func (s *CatalogService) Refresh(ctx context.Context) error {
	dep, err := s.chain.GetDeployment(ctx)
	if err != nil {
		return err
	}

	defs := s.current.Load().Catalog.Tiers()
	limits := make(map[string]int64, len(dep.Supplies))
	for _, sup := range dep.Supplies {
		limits[sup.Tier] = sup.GlobalLimit
	}
	for i := range defs {
		if lim, ok := limits[string(defs[i].Tier)]; ok && lim > 0 {
			defs[i].GlobalMintLimit = lim
		}
	}

	contracts := make(map[ledger.Tier]string, len(dep.Contracts))
	for tier, addr := range dep.Contracts {
		contracts[ledger.Tier(tier)] = addr
	}

	cat := ledger.NewCatalog(defs)
	s.current.Store(&CatalogSnapshot{
		Catalog:   cat,
		Ledger:    ledger.NewLedger(cat),
		Contracts: contracts,
		FetchedAt: dep.FetchedAt,
	})
	log.Printf("✅ Catalog snapshot refreshed (%d tiers, %d contracts)", cat.Len(), len(contracts))
	return nil
}
