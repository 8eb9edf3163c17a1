package storage

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// ReceiptWindow bounds the receipts considered for the multiplier.
const ReceiptWindow = 24 * time.Hour

type ReceiptManager struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReceiptManager(db *gorm.DB) *ReceiptManager {
	return &ReceiptManager{db: db, now: time.Now}
}

func (m *ReceiptManager) StoreMinerReceipt(requestID, minerKey, promptHash, network string, ts time.Time) error {
	r := MinerReceipt{
		RequestID:  requestID,
		MinerKey:   minerKey,
		PromptHash: promptHash,
		Network:    network,
		Timestamp:  ts,
	}
	if err := m.db.Create(&r).Error; err != nil {
		return fmt.Errorf("store receipt: %w", err)
	}
	return nil
}

type receiptCount struct {
	MinerKey string
	Count    int
}

// GetReceiptMinerMultiplier compares the miner's receipts in the trailing
// window against the busiest miner's.
func (m *ReceiptManager) GetReceiptMinerMultiplier(minerKey string) (float64, error) {
	var rows []receiptCount
	err := m.db.Model(&MinerReceipt{}).
		Select("miner_key, COUNT(*) AS count").
		Where("timestamp >= ?", m.now().Add(-ReceiptWindow)).
		Group("miner_key").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.MinerKey] = r.Count
	}
	return ReceiptMultiplier(counts, minerKey), nil
}

// ReceiptMultiplier is counts[key] over the largest count. Without any
// receipts every miner gets 1.
func ReceiptMultiplier(counts map[string]int, key string) float64 {
	highest := 0
	for _, c := range counts {
		if c > highest {
			highest = c
		}
	}
	if highest == 0 {
		return 1
	}
	return float64(counts[key]) / float64(highest)
}
