package storage

import "time"

const (
	TableMinerDiscovery           = "miner_discovery"
	TableMinerReceipts            = "miner_receipts"
	TableValidationPrompt         = "validation_prompt"
	TableValidationPromptResponse = "validation_prompt_response"
	TableFundsFlowChallenges      = "challenges_funds_flow"
	TableBalanceTrackingChallenge = "challenges_balance_tracking"
)

// MinerDiscovery is the last known state of a miner.
type MinerDiscovery struct {
	ID               uint      `gorm:"primary_key" json:"id"`
	UID              int       `gorm:"column:uid" json:"uid"`
	MinerKey         string    `gorm:"column:miner_key" json:"miner_key"`
	MinerAddress     string    `gorm:"column:miner_address" json:"miner_address"`
	MinerIPPort      int       `gorm:"column:miner_ip_port" json:"miner_ip_port"`
	Network          string    `gorm:"column:network" json:"network"`
	Rank             float64   `gorm:"column:rank" json:"rank"`
	FailedChallenges int       `gorm:"column:failed_challenges" json:"failed_challenges"`
	TotalChallenges  int       `gorm:"column:total_challenges" json:"total_challenges"`
	Timestamp        time.Time `gorm:"column:timestamp" json:"timestamp"`
}

func (MinerDiscovery) TableName() string { return TableMinerDiscovery }

// MinerReceipt records one answered organic query.
type MinerReceipt struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	RequestID  string    `gorm:"column:request_id" json:"request_id"`
	MinerKey   string    `gorm:"column:miner_key" json:"miner_key"`
	PromptHash string    `gorm:"column:prompt_hash" json:"prompt_hash"`
	Network    string    `gorm:"column:network" json:"network"`
	Timestamp  time.Time `gorm:"column:timestamp" json:"timestamp"`
}

func (MinerReceipt) TableName() string { return TableMinerReceipts }

// ValidationPrompt is a generated prompt with the verdicts cached for it.
type ValidationPrompt struct {
	ID              uint                       `gorm:"primary_key" json:"id"`
	Prompt          string                     `gorm:"column:prompt" json:"prompt"`
	PromptModelType string                     `gorm:"column:prompt_model_type" json:"prompt_model_type"`
	Data            string                     `gorm:"column:data" json:"data"`
	Network         string                     `gorm:"column:network" json:"network"`
	CreatedAt       time.Time                  `gorm:"column:created_at" json:"created_at"`
	Responses       []ValidationPromptResponse `gorm:"foreignkey:PromptID" json:"responses"`
}

func (ValidationPrompt) TableName() string { return TableValidationPrompt }

// ValidationPromptResponse is a cached verdict for one miner's query.
type ValidationPromptResponse struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	PromptID  uint      `gorm:"column:prompt_id" json:"prompt_id"`
	MinerKey  string    `gorm:"column:miner_key" json:"miner_key"`
	Query     string    `gorm:"column:query" json:"query"`
	Result    string    `gorm:"column:result" json:"result"`
	IsValid   bool      `gorm:"column:is_valid" json:"is_valid"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ValidationPromptResponse) TableName() string { return TableValidationPromptResponse }

// ChallengeRecord is a stored challenge and the answer expected for it. Both
// challenge tables share this layout.
type ChallengeRecord struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Challenge string    `gorm:"column:challenge" json:"challenge"`
	Expected  string    `gorm:"column:expected" json:"expected"`
	Network   string    `gorm:"column:network" json:"network"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}
