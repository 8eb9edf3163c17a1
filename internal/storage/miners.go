package storage

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

type MinerDiscoveryManager struct {
	db *gorm.DB
}

func NewMinerDiscoveryManager(db *gorm.DB) *MinerDiscoveryManager {
	return &MinerDiscoveryManager{db: db}
}

// UpdateMinerRank records the miner's current emission as its rank.
func (m *MinerDiscoveryManager) UpdateMinerRank(minerKey string, rank float64) error {
	var rec MinerDiscovery
	err := m.db.
		Where(MinerDiscovery{MinerKey: minerKey}).
		Assign(map[string]any{"rank": rank, "timestamp": time.Now().UTC()}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("update rank of %s: %w", minerKey, err)
	}
	return nil
}

// StoreMinerMetadata records where the miner was reached and what it serves.
func (m *MinerDiscoveryManager) StoreMinerMetadata(uid int, minerKey, address string, port int, network string) error {
	var rec MinerDiscovery
	err := m.db.
		Where(MinerDiscovery{MinerKey: minerKey}).
		Assign(map[string]any{
			"uid":           uid,
			"miner_address": address,
			"miner_ip_port": port,
			"network":       network,
			"timestamp":     time.Now().UTC(),
		}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("store metadata of %s: %w", minerKey, err)
	}
	return nil
}

// UpdateMinerChallenges records the outcome of the miner's latest challenge round.
func (m *MinerDiscoveryManager) UpdateMinerChallenges(minerKey string, failed, total int) error {
	err := m.db.Model(&MinerDiscovery{}).
		Where("miner_key = ?", minerKey).
		Updates(map[string]any{"failed_challenges": failed, "total_challenges": total}).Error
	if err != nil {
		return fmt.Errorf("update challenges of %s: %w", minerKey, err)
	}
	return nil
}

func (m *MinerDiscoveryManager) GetMinerByKey(minerKey, network string) (*MinerDiscovery, error) {
	var rec MinerDiscovery
	err := m.db.Where("miner_key = ? AND network = ?", minerKey, network).First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("miner %s on %s: %w", minerKey, network, notFound(err))
	}
	return &rec, nil
}

// GetMinersByNetwork returns miners of network that passed every challenge in
// their last round, highest rank first.
func (m *MinerDiscoveryManager) GetMinersByNetwork(network string, limit int) ([]MinerDiscovery, error) {
	var recs []MinerDiscovery
	q := m.db.
		Where("network = ? AND total_challenges > 0 AND failed_challenges = 0", network).
		Order("rank DESC").
		Order("miner_key ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("miners of %s: %w", network, err)
	}
	return recs, nil
}
