package api

import (
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createTontineRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Amount        decimal.Decimal  `json:"amount"`
	FrequencyDays int              `json:"frequency_days" validate:"required,min=1"`
	LateFee       *decimal.Decimal `json:"late_fee"`
}

type addMemberRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type transferAdminRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type reorderRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
	Lock    bool     `json:"lock"`
}

type recordPaymentRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	RoundNumber int    `json:"round_number" validate:"required,min=1"`
}

type applyPenaltyRequest struct {
	UserID      string           `json:"user_id" validate:"required"`
	RoundNumber int              `json:"round_number" validate:"required,min=1"`
	Amount      *decimal.Decimal `json:"amount"`
}
