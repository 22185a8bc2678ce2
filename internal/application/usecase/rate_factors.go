package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
)

// SaveRateFactorUseCase creates or updates a rate table entry.
type SaveRateFactorUseCase struct {
	rates  port.RateFactorRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewSaveRateFactorUseCase wires dependencies.
func NewSaveRateFactorUseCase(rates port.RateFactorRepository, logger *slog.Logger) *SaveRateFactorUseCase {
	return &SaveRateFactorUseCase{rates: rates, logger: logger, now: time.Now}
}

// Execute stores the entry. A tenor may appear in the table only once.
func (uc *SaveRateFactorUseCase) Execute(ctx context.Context, req dto.SaveRateFactorRequest) (dto.RateFactorResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RateFactorResponse{}, err
	}
	now := uc.now().UTC()

	existing, err := uc.rates.FindByTenor(ctx, req.TenorMonths)
	switch {
	case err == nil && existing.ID() != req.ID:
		return dto.RateFactorResponse{}, apperror.ErrValidation.
			Withf("a rate factor for %d months already exists", req.TenorMonths).
			WithDetails(map[string]any{"tenor_months": req.TenorMonths, "rate_factor_id": existing.ID()})
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return dto.RateFactorResponse{}, fmt.Errorf("find rate factor by tenor: %w", err)
	}

	var rf model.RateFactor
	if req.ID == "" {
		rf, err = model.NewRateFactor(req.TenorMonths, req.TermFactor, req.RateFactor, req.LastInstallmentFree, now)
	} else {
		var current model.RateFactor
		current, err = uc.rates.FindByID(ctx, req.ID)
		if err != nil {
			return dto.RateFactorResponse{}, fmt.Errorf("find rate factor: %w", err)
		}
		rf, err = current.Update(req.TenorMonths, req.TermFactor, req.RateFactor, req.LastInstallmentFree, now)
	}
	if err != nil {
		return dto.RateFactorResponse{}, fmt.Errorf("build rate factor: %w", err)
	}

	if err := uc.rates.Save(ctx, rf); err != nil {
		return dto.RateFactorResponse{}, fmt.Errorf("save rate factor: %w", err)
	}
	saved, err := uc.rates.FindByID(ctx, rf.ID())
	if err != nil {
		return dto.RateFactorResponse{}, fmt.Errorf("reload rate factor: %w", err)
	}

	uc.logger.InfoContext(ctx, "rate factor saved",
		"rate_factor_id", saved.ID(),
		"tenor_months", saved.TenorMonths(),
		"last_installment_free", saved.LastInstallmentFree(),
	)
	return toRateFactorResponse(saved), nil
}

// DeleteRateFactorUseCase removes a rate table entry. Sales already priced
// with it keep their snapshot.
type DeleteRateFactorUseCase struct {
	rates  port.RateFactorRepository
	logger *slog.Logger
}

// NewDeleteRateFactorUseCase wires dependencies.
func NewDeleteRateFactorUseCase(rates port.RateFactorRepository, logger *slog.Logger) *DeleteRateFactorUseCase {
	return &DeleteRateFactorUseCase{rates: rates, logger: logger}
}

func (uc *DeleteRateFactorUseCase) Execute(ctx context.Context, req dto.DeleteRateFactorRequest) (dto.DeleteRateFactorResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.DeleteRateFactorResponse{}, err
	}
	rf, err := uc.rates.FindByID(ctx, req.ID)
	if err != nil {
		return dto.DeleteRateFactorResponse{}, fmt.Errorf("find rate factor: %w", err)
	}
	if err := uc.rates.Delete(ctx, rf.Deleted()); err != nil {
		return dto.DeleteRateFactorResponse{}, fmt.Errorf("delete rate factor: %w", err)
	}
	uc.logger.InfoContext(ctx, "rate factor deleted", "rate_factor_id", rf.ID(), "tenor_months", rf.TenorMonths())
	return dto.DeleteRateFactorResponse{ID: rf.ID(), Deleted: true}, nil
}

// ListRateFactorsUseCase returns the rate table ordered by tenor.
type ListRateFactorsUseCase struct {
	rates port.RateFactorRepository
}

// NewListRateFactorsUseCase wires dependencies.
func NewListRateFactorsUseCase(rates port.RateFactorRepository) *ListRateFactorsUseCase {
	return &ListRateFactorsUseCase{rates: rates}
}

func (uc *ListRateFactorsUseCase) Execute(ctx context.Context) (dto.ListRateFactorsResponse, error) {
	list, err := uc.rates.List(ctx)
	if err != nil {
		return dto.ListRateFactorsResponse{}, fmt.Errorf("list rate factors: %w", err)
	}
	slices.SortFunc(list, func(a, b model.RateFactor) int { return cmp.Compare(a.TenorMonths(), b.TenorMonths()) })

	out := make([]dto.RateFactorResponse, 0, len(list))
	for _, rf := range list {
		out = append(out, toRateFactorResponse(rf))
	}
	return dto.ListRateFactorsResponse{RateFactors: out}, nil
}
