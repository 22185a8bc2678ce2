package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

// The sale row embeds its client snapshot, line items, rate snapshot, and
// installment schedule as JSONB documents. The types below fix their shape.

type clientDoc struct {
	ID                   string `json:"id"`
	FullName             string `json:"full_name"`
	IdentificationNumber string `json:"identification_number"`
	Address              string `json:"address"`
	Phone                string `json:"phone"`
}

type lineItemDoc struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

type rateDoc struct {
	RateFactorID        string          `json:"rate_factor_id"`
	TenorMonths         int             `json:"tenor_months"`
	TermFactor          decimal.Decimal `json:"term_factor"`
	RateFactor          decimal.Decimal `json:"rate_factor"`
	LastInstallmentFree bool            `json:"last_installment_free"`
}

type transactionDoc struct {
	TransactionID        string          `json:"transaction_id"`
	PaymentDate          string          `json:"payment_date"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PenaltyPortion       decimal.Decimal `json:"penalty_portion"`
	CapitalPortion       decimal.Decimal `json:"capital_portion"`
	FreePromotionApplied bool            `json:"free_promotion_applied"`
	PenaltyCharged       decimal.Decimal `json:"penalty_charged"`
	BalanceBefore        decimal.Decimal `json:"balance_before"`
	Reference            string          `json:"reference,omitempty"`
	OperatorID           string          `json:"operator_id"`
	RecordedAt           time.Time       `json:"recorded_at"`
}

type installmentDoc struct {
	Number                int              `json:"number"`
	DueDate               string           `json:"due_date"`
	DueAmount             decimal.Decimal  `json:"due_amount"`
	CumulativePaidCapital decimal.Decimal  `json:"cumulative_paid_capital"`
	Status                string           `json:"status"`
	FreePromotionApplied  bool             `json:"free_promotion_applied"`
	Transactions          []transactionDoc `json:"transactions"`
}

// saleRow is the column set of the sales table.
type saleRow struct {
	ID                string
	ClientID          string
	Client            []byte
	Items             []byte
	Subtotal          decimal.Decimal
	PaymentType       string
	DownPayment       decimal.Decimal
	FinancedPrincipal decimal.Decimal
	Rate              []byte
	InstallmentAmount decimal.Decimal
	TotalFinanced     decimal.Decimal
	Installments      []byte
	OperatorID        string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func encodeSale(st model.SaleState) (saleRow, error) {
	row := saleRow{
		ID:                st.ID,
		ClientID:          st.Client.ID,
		Subtotal:          st.Subtotal,
		PaymentType:       st.PaymentType.String(),
		DownPayment:       st.DownPayment,
		FinancedPrincipal: st.FinancedPrincipal,
		InstallmentAmount: st.InstallmentAmount,
		TotalFinanced:     st.TotalFinanced,
		OperatorID:        st.OperatorID,
		Version:           st.Version,
		CreatedAt:         st.CreatedAt,
		UpdatedAt:         st.UpdatedAt,
	}

	var err error
	if row.Client, err = json.Marshal(clientDoc(st.Client)); err != nil {
		return saleRow{}, fmt.Errorf("marshal client: %w", err)
	}

	items := make([]lineItemDoc, len(st.Items))
	for i, it := range st.Items {
		items[i] = lineItemDoc(it)
	}
	if row.Items, err = json.Marshal(items); err != nil {
		return saleRow{}, fmt.Errorf("marshal items: %w", err)
	}

	if !st.Rate.IsZero() {
		if row.Rate, err = json.Marshal(rateDoc(st.Rate)); err != nil {
			return saleRow{}, fmt.Errorf("marshal rate: %w", err)
		}
	}

	if row.Installments, err = encodeSchedule(st.Installments); err != nil {
		return saleRow{}, err
	}
	return row, nil
}

func encodeSchedule(installments []model.Installment) ([]byte, error) {
	docs := make([]installmentDoc, len(installments))
	for i, inst := range installments {
		txs := make([]transactionDoc, len(inst.Transactions))
		for j, tx := range inst.Transactions {
			txs[j] = encodeTransaction(tx)
		}
		docs[i] = installmentDoc{
			Number:                inst.Number,
			DueDate:               inst.DueDate.String(),
			DueAmount:             inst.DueAmount,
			CumulativePaidCapital: inst.CumulativePaidCapital,
			Status:                inst.Status.String(),
			FreePromotionApplied:  inst.FreePromotionApplied,
			Transactions:          txs,
		}
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("marshal installments: %w", err)
	}
	return b, nil
}

func encodeTransaction(tx model.PaymentTransaction) transactionDoc {
	return transactionDoc{
		TransactionID:        tx.TransactionID,
		PaymentDate:          tx.PaymentDate.String(),
		TotalAmount:          tx.TotalAmount,
		PenaltyPortion:       tx.PenaltyPortion,
		CapitalPortion:       tx.CapitalPortion,
		FreePromotionApplied: tx.FreePromotionApplied,
		PenaltyCharged:       tx.PenaltyCharged,
		BalanceBefore:        tx.BalanceBefore,
		Reference:            tx.Reference,
		OperatorID:           tx.OperatorID,
		RecordedAt:           tx.RecordedAt,
	}
}

// reconstructSale maps a sales row back into the aggregate.
func reconstructSale(row saleRow) (model.Sale, error) {
	paymentType, err := valueobject.NewPaymentType(row.PaymentType)
	if err != nil {
		return model.Sale{}, fmt.Errorf("sale %s: %w", row.ID, err)
	}

	var client clientDoc
	if err := json.Unmarshal(row.Client, &client); err != nil {
		return model.Sale{}, fmt.Errorf("sale %s: unmarshal client: %w", row.ID, err)
	}

	var itemDocs []lineItemDoc
	if err := json.Unmarshal(row.Items, &itemDocs); err != nil {
		return model.Sale{}, fmt.Errorf("sale %s: unmarshal items: %w", row.ID, err)
	}
	items := make([]model.LineItem, len(itemDocs))
	for i, d := range itemDocs {
		items[i] = model.LineItem(d)
	}

	var rate model.RateSnapshot
	if len(row.Rate) > 0 {
		var d rateDoc
		if err := json.Unmarshal(row.Rate, &d); err != nil {
			return model.Sale{}, fmt.Errorf("sale %s: unmarshal rate: %w", row.ID, err)
		}
		rate = model.RateSnapshot(d)
	}

	installments, err := decodeSchedule(row.Installments)
	if err != nil {
		return model.Sale{}, fmt.Errorf("sale %s: %w", row.ID, err)
	}

	return model.ReconstructSale(model.SaleState{
		ID:                row.ID,
		Client:            model.ClientSnapshot(client),
		Items:             items,
		Subtotal:          row.Subtotal,
		PaymentType:       paymentType,
		DownPayment:       row.DownPayment,
		FinancedPrincipal: row.FinancedPrincipal,
		Rate:              rate,
		InstallmentAmount: row.InstallmentAmount,
		TotalFinanced:     row.TotalFinanced,
		Installments:      installments,
		OperatorID:        row.OperatorID,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}), nil
}

func decodeSchedule(raw []byte) ([]model.Installment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []installmentDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal installments: %w", err)
	}

	out := make([]model.Installment, len(docs))
	for i, d := range docs {
		due, err := valueobject.ParseDate(d.DueDate)
		if err != nil {
			return nil, fmt.Errorf("installment %d: %w", d.Number, err)
		}
		status, err := valueobject.NewInstallmentStatus(d.Status)
		if err != nil {
			return nil, fmt.Errorf("installment %d: %w", d.Number, err)
		}
		txs := make([]model.PaymentTransaction, len(d.Transactions))
		for j, td := range d.Transactions {
			if txs[j], err = decodeTransaction(td); err != nil {
				return nil, fmt.Errorf("installment %d: %w", d.Number, err)
			}
		}
		out[i] = model.Installment{
			Number:                d.Number,
			DueDate:               due,
			DueAmount:             d.DueAmount,
			CumulativePaidCapital: d.CumulativePaidCapital,
			Status:                status,
			FreePromotionApplied:  d.FreePromotionApplied,
			Transactions:          txs,
		}
	}
	return out, nil
}

func decodeTransaction(d transactionDoc) (model.PaymentTransaction, error) {
	paid, err := valueobject.ParseDate(d.PaymentDate)
	if err != nil {
		return model.PaymentTransaction{}, fmt.Errorf("transaction %s: %w", d.TransactionID, err)
	}
	return model.PaymentTransaction{
		TransactionID:        d.TransactionID,
		PaymentDate:          paid,
		TotalAmount:          d.TotalAmount,
		PenaltyPortion:       d.PenaltyPortion,
		CapitalPortion:       d.CapitalPortion,
		FreePromotionApplied: d.FreePromotionApplied,
		PenaltyCharged:       d.PenaltyCharged,
		BalanceBefore:        d.BalanceBefore,
		Reference:            d.Reference,
		OperatorID:           d.OperatorID,
		RecordedAt:           d.RecordedAt,
	}, nil
}
