package repository

import (
	"sort"
	"sync"

	"github.com/casperflow/remitd/internal/models"
)

type contributionKey struct {
	remittanceID uint64
	contributor  string
}

// MemoryDB is an in-memory Repository used by tests and development mode.
// It mirrors the Postgres store's semantics: monotonic ID allocation,
// cumulative contribution rows and a single platform config row.
type MemoryDB struct {
	mu sync.RWMutex

	nextID        uint64
	remittances   map[uint64]*models.Remittance
	contributions map[contributionKey]*models.Amount
	contributors  map[uint64][]string
	refundClaims  map[contributionKey]int64
	config        *models.PlatformConfig
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		remittances:   make(map[uint64]*models.Remittance),
		contributions: make(map[contributionKey]*models.Amount),
		contributors:  make(map[uint64][]string),
		refundClaims:  make(map[contributionKey]int64),
	}
}

func (db *MemoryDB) Close() error {
	return nil
}

func (db *MemoryDB) CreateRemittance(remittance *models.Remittance) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextID++
	remittance.ID = db.nextID
	stored := *remittance
	db.remittances[remittance.ID] = &stored
	return nil
}

func (db *MemoryDB) GetRemittance(id uint64) (*models.Remittance, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	remittance, ok := db.remittances[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *remittance
	return &copied, nil
}

func (db *MemoryDB) UpdateRemittance(remittance *models.Remittance) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.remittances[remittance.ID]; !ok {
		return models.ErrNotFound
	}
	stored := *remittance
	db.remittances[remittance.ID] = &stored
	return nil
}

func (db *MemoryDB) ListRemittancesByCreator(creator string) ([]*models.Remittance, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.listRemittances(func(r *models.Remittance) bool { return r.Creator == creator }), nil
}

func (db *MemoryDB) ListRemittancesByRecipient(recipient string) ([]*models.Remittance, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.listRemittances(func(r *models.Remittance) bool { return r.Recipient == recipient }), nil
}

func (db *MemoryDB) listRemittances(match func(*models.Remittance) bool) []*models.Remittance {
	result := make([]*models.Remittance, 0)
	for _, remittance := range db.remittances {
		if match(remittance) {
			copied := *remittance
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (db *MemoryDB) ApplyContribution(remittance *models.Remittance, contributor string, amount *models.Amount, timestamp int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.remittances[remittance.ID]; !ok {
		return models.ErrNotFound
	}
	stored := *remittance
	db.remittances[remittance.ID] = &stored

	key := contributionKey{remittanceID: remittance.ID, contributor: contributor}
	existing, ok := db.contributions[key]
	if !ok {
		db.contributions[key] = amount.Clone()
		db.contributors[remittance.ID] = append(db.contributors[remittance.ID], contributor)
		return nil
	}
	db.contributions[key] = existing.Add(amount)
	return nil
}

func (db *MemoryDB) GetContribution(remittanceID uint64, contributor string) (*models.Amount, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	amount, ok := db.contributions[contributionKey{remittanceID: remittanceID, contributor: contributor}]
	if !ok {
		return models.NewAmount(0), nil
	}
	return amount.Clone(), nil
}

func (db *MemoryDB) ListContributors(remittanceID uint64) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	contributors := db.contributors[remittanceID]
	result := make([]string, len(contributors))
	copy(result, contributors)
	return result, nil
}

func (db *MemoryDB) MarkRefundClaimed(remittanceID uint64, contributor string, claimedAt int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.refundClaims[contributionKey{remittanceID: remittanceID, contributor: contributor}] = claimedAt
	return nil
}

func (db *MemoryDB) IsRefundClaimed(remittanceID uint64, contributor string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, claimed := db.refundClaims[contributionKey{remittanceID: remittanceID, contributor: contributor}]
	return claimed, nil
}

func (db *MemoryDB) EnsurePlatformConfig(defaults *models.PlatformConfig) (*models.PlatformConfig, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.config == nil {
		config := *defaults
		db.config = &config
	}
	copied := *db.config
	return &copied, nil
}

func (db *MemoryDB) GetPlatformConfig() (*models.PlatformConfig, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.config == nil {
		return nil, models.ErrNotFound
	}
	copied := *db.config
	return &copied, nil
}

func (db *MemoryDB) SavePlatformConfig(config *models.PlatformConfig) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	copied := *config
	db.config = &copied
	return nil
}
