package dto

import "rentme/internal/domain/shared/money"

// MoneyDTO carries minor units for machines and a decimal string for display.
type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
		Display:  value.Decimal().StringFixed(2),
	}
}
