package model

import "time"

// Кампании

type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	ProgramID    string    `json:"programId,omitempty"`
	TriggerEvent string    `json:"triggerEvent,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	CampaignTypeTriggerBased = "trigger-based"
	CampaignTypeOneTime      = "one-time"
)

const (
	CampaignStatusActive        = "Active"
	CampaignStatusPaused        = "Paused"
	CampaignStatusEnded         = "Ended"
	CampaignStatusCampaignEnded = "Campaign Ended"
)

// DefaultCampaignStatus возвращает статус новой кампании по её типу.
// Разовая кампания отрабатывает целиком при публикации.
func DefaultCampaignStatus(campaignType string) string {
	if campaignType == CampaignTypeOneTime {
		return CampaignStatusCampaignEnded
	}
	return CampaignStatusActive
}

func ValidCampaignType(t string) bool {
	return t == CampaignTypeTriggerBased || t == CampaignTypeOneTime
}

func ValidCampaignStatus(s string) bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusEnded, CampaignStatusCampaignEnded:
		return true
	}
	return false
}

// Правила сгорания

type BurnRule struct {
	ID                int      `json:"id"`
	CampaignID        string   `json:"campaignId"`
	ExpiryDays        int      `json:"expiryDays"`
	ExpiryPeriod      string   `json:"expiryPeriod"`
	MinimumOrderValue *float64 `json:"minimumOrderValue,omitempty"`
}

// Клиенты из загруженного CSV

type Customer struct {
	ID            int       `json:"id"`
	CampaignID    string    `json:"campaignId"`
	PartnerUserID string    `json:"partnerUserId,omitempty"`
	Contact       string    `json:"contact,omitempty"`
	Amount        float64   `json:"amount"`
	LoadID        string    `json:"loadId"`
	ErrorReason   string    `json:"errorReason,omitempty"`
	Processed     bool      `json:"processed"`
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	CustomerStatusPending   = "pending"
	CustomerStatusProcessed = "processed"
	CustomerStatusFailed    = "failed"
)

// Status выводит статус строки выгрузки. Processed никем не выставляется,
// поэтому без ошибки строка остаётся pending.
func (c Customer) Status() string {
	switch {
	case c.ErrorReason != "":
		return CustomerStatusFailed
	case c.Processed:
		return CustomerStatusProcessed
	default:
		return CustomerStatusPending
	}
}

// Программы

type Program struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Purpose           string      `json:"purpose"`
	InputType         string      `json:"inputType"`
	ExpiryDays        int         `json:"expiryDays"`
	MinimumOrderValue *float64    `json:"minimumOrderValue,omitempty"`
	FileFormatID      string      `json:"fileFormatId,omitempty"`
	UserLimits        *UserLimits `json:"userLimits,omitempty"`
	Status            string      `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

type UserLimits struct {
	MaxUsagePerUser int    `json:"maxUsagePerUser" validate:"gte=0"`
	LimitPeriod     string `json:"limitPeriod,omitempty" validate:"omitempty,oneof=day week month lifetime"`
	CooldownPeriod  int    `json:"cooldownPeriod,omitempty" validate:"gte=0"`
	CooldownUnit    string `json:"cooldownUnit,omitempty" validate:"omitempty,oneof=hours days"`
}

const (
	ProgramPurposePromotions = "promotions"
	ProgramPurposeLoyalty    = "loyalty"

	ProgramInputEvent = "event"
	ProgramInputFile  = "file"

	ProgramStatusActive   = "active"
	ProgramStatusInactive = "inactive"
)

// Кошельки

type Wallet struct {
	ID            string    `json:"id"`
	PartnerUserID string    `json:"partnerUserId"`
	Balance       float64   `json:"balance"`
	CampaignID    string    `json:"campaignId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// WalletTransaction не хранится: строится из записей клиентов кампаний.
type WalletTransaction struct {
	ID           int       `json:"id"`
	CampaignID   string    `json:"campaignId"`
	CampaignName string    `json:"campaignName"`
	Amount       float64   `json:"amount"`
	LoadID       string    `json:"loadId"`
	CreatedAt    time.Time `json:"createdAt"`
	Type         string    `json:"type"`
}

const WalletTransactionTypeCredit = "credit"

// Пользователи

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
