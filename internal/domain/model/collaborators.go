package model

import "github.com/shopspring/decimal"

// ClientSnapshot is the client registry record as seen by the credit engine.
type ClientSnapshot struct {
	ID                   string
	FullName             string
	IdentificationNumber string
	Address              string
	Phone                string
}

// Product is the catalog record consulted when a sale is registered.
type Product struct {
	ID            string
	Name          string
	CashPrice     decimal.Decimal
	FinancedPrice decimal.Decimal
	Stock         int
}

// PriceFor returns the unit price the catalog quotes for the given sale kind.
func (p Product) PriceFor(financed bool) decimal.Decimal {
	if financed {
		return p.FinancedPrice
	}
	return p.CashPrice
}

// StockReservation is the quantity of a product a sale takes out of stock.
type StockReservation struct {
	ProductID string
	Quantity  int
}
