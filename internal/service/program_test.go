package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/campaignadmin/internal/csvrow"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/store"
)

func TestProgramRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	mov := 250.0
	req := ProgramRequest{
		Name:              "Festive loyalty",
		Purpose:           model.ProgramPurposeLoyalty,
		InputType:         model.ProgramInputFile,
		ExpiryDays:        60,
		MinimumOrderValue: &mov,
		FileFormatID:      "transactions",
		UserLimits:        &model.UserLimits{MaxUsagePerUser: 2, LimitPeriod: "week"},
	}
	created, err := service.CreateProgram(ctx, req)
	require.NoError(t, err)
	require.Regexp(t, `^iprog_[A-Z0-9]{14}$`, created.ID)

	got, err := service.GetProgram(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, req.Name, got.Name)
	require.Equal(t, req.Purpose, got.Purpose)
	require.Equal(t, req.InputType, got.InputType)
	require.Equal(t, req.ExpiryDays, got.ExpiryDays)
	require.Equal(t, mov, *got.MinimumOrderValue)
	require.Equal(t, req.FileFormatID, got.FileFormatID)
	require.Equal(t, req.UserLimits, got.UserLimits)
	require.Equal(t, model.ProgramStatusActive, got.Status)

	list, err := service.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestProgramValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	valid := ProgramRequest{Name: "p", Purpose: model.ProgramPurposePromotions,
		InputType: model.ProgramInputEvent, ExpiryDays: 1}

	for name, modify := range map[string]func(*ProgramRequest){
		"no name":        func(r *ProgramRequest) { r.Name = "" },
		"bad purpose":    func(r *ProgramRequest) { r.Purpose = "cashback" },
		"bad input type": func(r *ProgramRequest) { r.InputType = "api" },
		"zero expiry":    func(r *ProgramRequest) { r.ExpiryDays = 0 },
		"unknown format": func(r *ProgramRequest) { r.FileFormatID = "xlsx" },
		"bad limits":     func(r *ProgramRequest) { r.UserLimits = &model.UserLimits{LimitPeriod: "year"} },
		"bad status":     func(r *ProgramRequest) { r.Status = "paused" },
	} {
		t.Run(name, func(t *testing.T) {
			req := valid
			modify(&req)
			_, err := service.CreateProgram(ctx, req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProgramUpdateDelete(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	created, err := service.CreateProgram(ctx, ProgramRequest{Name: "p", Purpose: model.ProgramPurposePromotions,
		InputType: model.ProgramInputEvent, ExpiryDays: 7})
	require.NoError(t, err)

	inactive := model.ProgramStatusInactive
	updated, err := service.UpdateProgram(ctx, created.ID, ProgramPatch{Status: &inactive})
	require.NoError(t, err)
	require.Equal(t, model.ProgramStatusInactive, updated.Status)
	// остальные поля не тронуты
	require.Equal(t, "p", updated.Name)
	require.Equal(t, 7, updated.ExpiryDays)

	bad := "paused"
	_, err = service.UpdateProgram(ctx, created.ID, ProgramPatch{Status: &bad})
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.UpdateProgram(ctx, "iprog_MISSING", ProgramPatch{Status: &inactive})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, service.DeleteProgram(ctx, created.ID))
	require.ErrorIs(t, service.DeleteProgram(ctx, created.ID), ErrNotFound)
	_, err = service.GetProgram(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSampleFile(t *testing.T) {
	service := newTestService(t, store.NewMemory())

	require.NotEmpty(t, service.FileFormats())

	data, err := service.SampleFile("one_time_users")
	require.NoError(t, err)
	_, header, err := csvrow.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, header.Has(ColumnPartnerUserID))
	require.True(t, header.Has(ColumnContact))

	_, err = service.SampleFile("missing")
	require.ErrorIs(t, err, ErrNotFound)
}
