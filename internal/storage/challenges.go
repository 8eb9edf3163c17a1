package storage

import (
	"fmt"

	"github.com/jinzhu/gorm"
)

// ChallengeManager stores one kind of challenge.
type ChallengeManager struct {
	db    *gorm.DB
	table string
}

func NewFundsFlowChallengeManager(db *gorm.DB) *ChallengeManager {
	return &ChallengeManager{db: db, table: TableFundsFlowChallenges}
}

func NewBalanceTrackingChallengeManager(db *gorm.DB) *ChallengeManager {
	return &ChallengeManager{db: db, table: TableBalanceTrackingChallenge}
}

// GetRandomChallenge returns a random challenge JSON for network and the
// value a correct miner must answer.
func (m *ChallengeManager) GetRandomChallenge(network string) (string, string, error) {
	var rec ChallengeRecord
	err := m.db.Table(m.table).
		Where("network = ?", network).
		Order("RANDOM()").
		Limit(1).
		Take(&rec).Error
	if err != nil {
		return "", "", fmt.Errorf("random challenge from %s: %w", m.table, notFound(err))
	}
	return rec.Challenge, rec.Expected, nil
}

func (m *ChallengeManager) GetChallengeCount(network string) (int, error) {
	var count int
	err := m.db.Table(m.table).Where("network = ?", network).Count(&count).Error
	return count, err
}

// StoreChallenge inserts a challenge, evicting the oldest ones once the
// network already holds threshold challenges.
func (m *ChallengeManager) StoreChallenge(challengeJSON, expected, network string, threshold int) error {
	return storeWithEviction(m.db, m.table, network, threshold, func(tx *gorm.DB) error {
		rec := ChallengeRecord{Challenge: challengeJSON, Expected: expected, Network: network}
		return tx.Table(m.table).Create(&rec).Error
	})
}
