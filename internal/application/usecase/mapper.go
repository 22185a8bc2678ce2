package usecase

import (
	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
)

func toSaleResponse(s model.Sale) dto.SaleResponse {
	items := make([]dto.LineItemResponse, 0, len(s.Items()))
	for _, it := range s.Items() {
		items = append(items, dto.LineItemResponse{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			LineSubtotal: it.LineSubtotal,
		})
	}

	installments := make([]dto.InstallmentResponse, 0, len(s.Installments()))
	for _, inst := range s.Installments() {
		installments = append(installments, toInstallmentResponse(inst))
	}

	resp := dto.SaleResponse{
		ID:                 s.ID(),
		Client:             toClientResponse(s.Client()),
		Items:              items,
		Subtotal:           s.Subtotal(),
		PaymentType:        s.PaymentType().String(),
		DownPayment:        s.DownPayment(),
		FinancedPrincipal:  s.FinancedPrincipal(),
		InstallmentAmount:  s.InstallmentAmount(),
		TotalFinanced:      s.TotalFinanced(),
		OutstandingCapital: s.OutstandingCapital(),
		Installments:       installments,
		OperatorID:         s.OperatorID(),
		Version:            s.Version(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}
	if rate := s.Rate(); !rate.IsZero() {
		resp.Rate = &dto.RateSnapshotResponse{
			RateFactorID:        rate.RateFactorID,
			TenorMonths:         rate.TenorMonths,
			TermFactor:          rate.TermFactor,
			RateFactor:          rate.RateFactor,
			LastInstallmentFree: rate.LastInstallmentFree,
		}
	}
	return resp
}

func toInstallmentResponse(inst model.Installment) dto.InstallmentResponse {
	txs := make([]dto.TransactionResponse, 0, len(inst.Transactions))
	for _, tx := range inst.Transactions {
		txs = append(txs, toTransactionResponse(tx))
	}
	return dto.InstallmentResponse{
		Number:                inst.Number,
		DueDate:               inst.DueDate.String(),
		DueAmount:             inst.DueAmount,
		CumulativePaidCapital: inst.CumulativePaidCapital,
		CapitalOutstanding:    inst.CapitalOutstanding(),
		Status:                inst.Status.String(),
		FreePromotionApplied:  inst.FreePromotionApplied,
		Transactions:          txs,
	}
}

func toTransactionResponse(tx model.PaymentTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TransactionID:        tx.TransactionID,
		PaymentDate:          tx.PaymentDate.String(),
		TotalAmount:          tx.TotalAmount,
		PenaltyPortion:       tx.PenaltyPortion,
		CapitalPortion:       tx.CapitalPortion,
		FreePromotionApplied: tx.FreePromotionApplied,
		Reference:            tx.Reference,
		OperatorID:           tx.OperatorID,
		RecordedAt:           tx.RecordedAt,
	}
}

func toClientResponse(c model.ClientSnapshot) dto.ClientResponse {
	return dto.ClientResponse{
		ID:                   c.ID,
		FullName:             c.FullName,
		IdentificationNumber: c.IdentificationNumber,
		Address:              c.Address,
		Phone:                c.Phone,
	}
}

func toReceiptResponse(r model.Receipt) dto.ReceiptResponse {
	return dto.ReceiptResponse{
		ReceiptNumber: r.ReceiptNumber,
		Currency:      r.Currency,
		IssuedAt:      r.IssuedAt,
		Sale: dto.SaleSummaryResponse{
			SaleID:            r.Sale.SaleID,
			PaymentType:       r.Sale.PaymentType,
			Subtotal:          r.Sale.Subtotal,
			DownPayment:       r.Sale.DownPayment,
			FinancedPrincipal: r.Sale.FinancedPrincipal,
			InstallmentAmount: r.Sale.InstallmentAmount,
			TotalFinanced:     r.Sale.TotalFinanced,
			InstallmentCount:  r.Sale.InstallmentCount,
			PaidCount:         r.Sale.PaidCount,
			CreatedAt:         r.Sale.CreatedAt,
		},
		Installment:          toInstallmentResponse(r.Installment),
		Client:               toClientResponse(r.Client),
		OperatorID:           r.OperatorID,
		TransactionID:        r.TransactionID,
		PaymentDate:          r.PaymentDate.String(),
		Reference:            r.Reference,
		AmountPaid:           r.AmountPaid,
		PenaltyPaid:          r.PenaltyPaid,
		CapitalPaid:          r.CapitalPaid,
		FreePromotionGranted: r.FreePromotionGranted,
		BalanceBefore:        r.BalanceBefore,
		BalanceAfter:         r.BalanceAfter,
		SaleOutstanding:      r.SaleOutstanding,
		Reprint:              r.Reprint,
	}
}

func toRateFactorResponse(rf model.RateFactor) dto.RateFactorResponse {
	return dto.RateFactorResponse{
		ID:                  rf.ID(),
		TenorMonths:         rf.TenorMonths(),
		TermFactor:          rf.TermFactor(),
		RateFactor:          rf.RateFactor(),
		LastInstallmentFree: rf.LastInstallmentFree(),
		Version:             rf.Version(),
		UpdatedAt:           rf.UpdatedAt(),
	}
}
