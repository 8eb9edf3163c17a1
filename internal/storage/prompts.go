package storage

import (
	"fmt"

	"github.com/jinzhu/gorm"
)

type PromptManager struct {
	db *gorm.DB
}

func NewPromptManager(db *gorm.DB) *PromptManager {
	return &PromptManager{db: db}
}

// GetRandomPrompt returns a random prompt of network with its cached responses.
func (m *PromptManager) GetRandomPrompt(network string) (*ValidationPrompt, error) {
	var p ValidationPrompt
	err := m.db.
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("network = ?", network).
		Order("RANDOM()").
		Take(&p).Error
	if err != nil {
		return nil, fmt.Errorf("random prompt for %s: %w", network, notFound(err))
	}
	return &p, nil
}

func (m *PromptManager) GetPromptCount(network string) (int, error) {
	var count int
	err := m.db.Model(&ValidationPrompt{}).Where("network = ?", network).Count(&count).Error
	return count, err
}

// StorePrompt inserts a prompt, evicting the oldest ones (and their cached
// responses) once the network already holds threshold prompts.
func (m *PromptManager) StorePrompt(prompt, modelType, data, network string, threshold int) error {
	return storeWithEviction(m.db, TableValidationPrompt, network, threshold, func(tx *gorm.DB) error {
		p := ValidationPrompt{Prompt: prompt, PromptModelType: modelType, Data: data, Network: network}
		return tx.Create(&p).Error
	})
}

type PromptResponseManager struct {
	db *gorm.DB
}

func NewPromptResponseManager(db *gorm.DB) *PromptResponseManager {
	return &PromptResponseManager{db: db}
}

// StoreResponse caches a verdict for a miner's query to a prompt.
func (m *PromptResponseManager) StoreResponse(promptID uint, minerKey, query, result string, isValid bool) error {
	r := ValidationPromptResponse{
		PromptID: promptID,
		MinerKey: minerKey,
		Query:    query,
		Result:   result,
		IsValid:  isValid,
	}
	if err := m.db.Create(&r).Error; err != nil {
		return fmt.Errorf("store prompt response: %w", err)
	}
	return nil
}
