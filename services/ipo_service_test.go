package services

import (
	"context"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIPO(symbol string, open time.Time) models.IPO {
	return models.IPO{
		CompanyName:   symbol + " Ltd",
		Symbol:        symbol,
		PriceRange:    models.PriceRange{Min: decimal.NewFromInt(90), Max: decimal.NewFromInt(95)},
		LotSize:       150,
		TotalShares:   5_000_000,
		MinInvestment: decimal.NewFromInt(13500),
		OpenDate:      open,
		CloseDate:     open.AddDate(0, 0, 3),
	}
}

func TestCreateIPO_NormalizesAndDefaults(t *testing.T) {
	wf := newTestWorkflow(nil)
	ipo := validIPO("  acme ", time.Now().UTC())
	ipo.CompanyName = "  Acme Corp  "

	require.NoError(t, wf.ipos.CreateIPO(context.Background(), &ipo, admin.UserID))
	assert.Equal(t, "ACME", ipo.Symbol)
	assert.Equal(t, "Acme Corp", ipo.CompanyName)
	assert.Equal(t, models.IPOStatusUpcoming, ipo.Status)

	got, err := wf.ipos.GetIPOByID(context.Background(), ipo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.Symbol)
}

func TestValidateIPO(t *testing.T) {
	open := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]func(*models.IPO){
		"missing company":      func(i *models.IPO) { i.CompanyName = "" },
		"missing symbol":       func(i *models.IPO) { i.Symbol = "" },
		"long symbol":          func(i *models.IPO) { i.Symbol = "ABCDEFGHIJKLMNOPQRSTUV" },
		"min above max":        func(i *models.IPO) { i.PriceRange.Min = decimal.NewFromInt(100) },
		"zero lot size":        func(i *models.IPO) { i.LotSize = 0 },
		"zero total shares":    func(i *models.IPO) { i.TotalShares = 0 },
		"zero min investment":  func(i *models.IPO) { i.MinInvestment = decimal.Zero },
		"close before open":    func(i *models.IPO) { i.CloseDate = open.AddDate(0, 0, -1) },
		"missing open date":    func(i *models.IPO) { i.OpenDate = time.Time{} },
		"unknown status":       func(i *models.IPO) { i.Status = "paused" },
		"negative price floor": func(i *models.IPO) { i.PriceRange.Min = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ipo := validIPO("ACME", open)
			ipo.Status = models.IPOStatusUpcoming
			mutate(&ipo)
			err := ValidateIPO(&ipo)
			require.Error(t, err)
			assert.True(t, shared.IsCategory(err, shared.ErrorCategoryValidation))
		})
	}

	ipo := validIPO("ACME", open)
	ipo.Status = models.IPOStatusUpcoming
	assert.NoError(t, ValidateIPO(&ipo))
}

func TestCreateIPO_DuplicateSymbol(t *testing.T) {
	wf := newTestWorkflow(nil)
	first := validIPO("ACME", time.Now().UTC())
	require.NoError(t, wf.ipos.CreateIPO(context.Background(), &first, admin.UserID))

	second := validIPO("acme", time.Now().UTC())
	err := wf.ipos.CreateIPO(context.Background(), &second, admin.UserID)
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryConflict))
}

func TestListIPOs_FilterSearchAndOrder(t *testing.T) {
	ctx := context.Background()
	wf := newTestWorkflow(nil)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seedIPO(t, wf, "ALPHA", models.IPOStatusActive, base, base.AddDate(0, 0, 3))
	seedIPO(t, wf, "BETA", models.IPOStatusUpcoming, base.AddDate(0, 0, 10), base.AddDate(0, 0, 13))
	seedIPO(t, wf, "GAMMA", models.IPOStatusClosed, base.AddDate(0, 0, -10), base.AddDate(0, 0, -7))

	all, pagination, err := wf.ipos.ListIPOs(ctx, models.IPOFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, Total: 3, Pages: 1}, pagination)
	assert.Equal(t, []string{"BETA", "ALPHA", "GAMMA"}, []string{all[0].Symbol, all[1].Symbol, all[2].Symbol})

	active, _, err := wf.ipos.ListIPOs(ctx, models.IPOFilter{Status: models.IPOStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ALPHA", active[0].Symbol)

	found, _, err := wf.ipos.ListIPOs(ctx, models.IPOFilter{Search: "  gam "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "GAMMA", found[0].Symbol)

	page, pagination, err := wf.ipos.ListIPOs(ctx, models.IPOFilter{PageRequest: models.PageRequest{Page: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2, pagination.Pages)

	_, _, err = wf.ipos.ListIPOs(ctx, models.IPOFilter{Status: "paused"})
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryValidation))
}

func TestActiveAndUpcomingIPOs(t *testing.T) {
	ctx := context.Background()
	wf := newTestWorkflow(nil)
	now := time.Now().UTC()
	seedIPO(t, wf, "OPEN", models.IPOStatusActive, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	seedIPO(t, wf, "STALE", models.IPOStatusActive, now.AddDate(0, 0, -9), now.AddDate(0, 0, -6))
	seedIPO(t, wf, "LATER", models.IPOStatusUpcoming, now.AddDate(0, 0, 20), now.AddDate(0, 0, 23))
	seedIPO(t, wf, "SOON", models.IPOStatusUpcoming, now.AddDate(0, 0, 5), now.AddDate(0, 0, 8))
	seedIPO(t, wf, "LATE", models.IPOStatusUpcoming, now.AddDate(0, 0, -2), now.AddDate(0, 0, 1))

	active, err := wf.ipos.GetActiveIPOs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "OPEN", active[0].Symbol)

	upcoming, err := wf.ipos.GetUpcomingIPOs(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "SOON", upcoming[0].Symbol, "soonest first")
	assert.Equal(t, "LATER", upcoming[1].Symbol)
}

func TestUpdateIPO_AppliesPatch(t *testing.T) {
	ctx := context.Background()
	wf := newTestWorkflow(nil)
	ipo := seedActiveIPO(t, wf, "ACME")

	status := models.IPOStatusClosed
	lot := 25
	updated, err := wf.ipos.UpdateIPO(ctx, ipo.ID.String(), models.IPOPatch{Status: &status, LotSize: &lot}, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.IPOStatusClosed, updated.Status)
	assert.Equal(t, 25, updated.LotSize)
	assert.Equal(t, ipo.CompanyName, updated.CompanyName)

	badLot := 0
	_, err = wf.ipos.UpdateIPO(ctx, ipo.ID.String(), models.IPOPatch{LotSize: &badLot}, admin.UserID)
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryValidation))

	_, err = wf.ipos.UpdateIPO(ctx, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", models.IPOPatch{LotSize: &lot}, admin.UserID)
	require.Error(t, err)
	assert.Equal(t, "IPO not found", shared.PublicMessage(err))
}

func TestDeleteIPO(t *testing.T) {
	ctx := context.Background()
	wf := newTestWorkflow(nil)
	unused := seedActiveIPO(t, wf, "UNUSED")
	applied := seedActiveIPO(t, wf, "APPLIED")
	_, err := submit(wf, alice, applied, 1, 100)
	require.NoError(t, err)

	require.NoError(t, wf.ipos.DeleteIPO(ctx, unused.ID.String(), admin.UserID))
	_, err = wf.ipos.GetIPOByID(ctx, unused.ID.String())
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryNotFound))

	err = wf.ipos.DeleteIPO(ctx, applied.ID.String(), admin.UserID)
	require.Error(t, err)
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryInvalidState))
	assert.Equal(t, "IPO has applications and cannot be deleted", shared.PublicMessage(err))

	err = wf.ipos.DeleteIPO(ctx, unused.ID.String(), admin.UserID)
	assert.Equal(t, "IPO not found", shared.PublicMessage(err))
}

func TestUpsertIPOs_CreatesUpdatesAndSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	wf := newTestWorkflow(nil)
	open := time.Now().UTC().AddDate(0, 0, 7)

	result, err := wf.ipos.UpsertIPOs(ctx, []models.IPO{validIPO("ONE", open), validIPO("TWO", open)}, "ipo-sync")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertResult{Created: 2, Total: 2}, result)

	refreshed := validIPO("one", open)
	refreshed.LotSize = 300
	invalid := validIPO("BAD", open)
	invalid.LotSize = 0
	result, err = wf.ipos.UpsertIPOs(ctx, []models.IPO{refreshed, invalid, validIPO("THREE", open)}, "ipo-sync")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertResult{Created: 1, Updated: 1, Total: 2}, result)
	assert.Len(t, wf.db.ipos, 3)

	_, err = wf.ipos.UpsertIPOs(ctx, []models.IPO{invalid}, "ipo-sync")
	assert.Error(t, err, "a batch with no valid record fails")
}
