package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iurnickita/campaignadmin/internal/fileformat"
	"github.com/iurnickita/campaignadmin/internal/idgen"
	"github.com/iurnickita/campaignadmin/internal/model"
)

type ProgramRequest struct {
	Name              string            `json:"name" validate:"required"`
	Purpose           string            `json:"purpose" validate:"required,oneof=promotions loyalty"`
	InputType         string            `json:"inputType" validate:"required,oneof=event file"`
	ExpiryDays        int               `json:"expiryDays" validate:"gte=1"`
	MinimumOrderValue *float64          `json:"minimumOrderValue" validate:"omitempty,gte=0"`
	FileFormatID      string            `json:"fileFormatId"`
	UserLimits        *model.UserLimits `json:"userLimits"`
	Status            string            `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ProgramPatch частичное обновление: nil-поля не меняются.
type ProgramPatch struct {
	Name              *string           `json:"name" validate:"omitempty,min=1"`
	Purpose           *string           `json:"purpose" validate:"omitempty,oneof=promotions loyalty"`
	InputType         *string           `json:"inputType" validate:"omitempty,oneof=event file"`
	ExpiryDays        *int              `json:"expiryDays" validate:"omitempty,gte=1"`
	MinimumOrderValue *float64          `json:"minimumOrderValue" validate:"omitempty,gte=0"`
	FileFormatID      *string           `json:"fileFormatId"`
	UserLimits        *model.UserLimits `json:"userLimits"`
	Status            *string           `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (service *service) CreateProgram(ctx context.Context, req ProgramRequest) (model.Program, error) {
	if err := validateStruct(req); err != nil {
		return model.Program{}, err
	}
	if err := checkFileFormat(req.FileFormatID); err != nil {
		return model.Program{}, err
	}

	status := req.Status
	if status == "" {
		status = model.ProgramStatusActive
	}

	now := time.Now().UTC()
	program, err := service.store.ProgramCreate(ctx, model.Program{
		ID:                idgen.ProgramID(),
		Name:              req.Name,
		Purpose:           req.Purpose,
		InputType:         req.InputType,
		ExpiryDays:        req.ExpiryDays,
		MinimumOrderValue: req.MinimumOrderValue,
		FileFormatID:      req.FileFormatID,
		UserLimits:        req.UserLimits,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return model.Program{}, fmt.Errorf("create program: %w", err)
	}
	return program, nil
}

func (service *service) GetProgram(ctx context.Context, id string) (model.Program, error) {
	program, err := service.store.ProgramGet(ctx, id)
	if err != nil {
		return model.Program{}, notFound(err, "program", id)
	}
	return program, nil
}

func (service *service) ListPrograms(ctx context.Context) ([]model.Program, error) {
	return service.store.ProgramList(ctx)
}

func (service *service) UpdateProgram(ctx context.Context, id string, patch ProgramPatch) (model.Program, error) {
	if err := validateStruct(patch); err != nil {
		return model.Program{}, err
	}

	program, err := service.GetProgram(ctx, id)
	if err != nil {
		return model.Program{}, err
	}

	if patch.Name != nil {
		program.Name = *patch.Name
	}
	if patch.Purpose != nil {
		program.Purpose = *patch.Purpose
	}
	if patch.InputType != nil {
		program.InputType = *patch.InputType
	}
	if patch.ExpiryDays != nil {
		program.ExpiryDays = *patch.ExpiryDays
	}
	if patch.MinimumOrderValue != nil {
		program.MinimumOrderValue = patch.MinimumOrderValue
	}
	if patch.FileFormatID != nil {
		if err := checkFileFormat(*patch.FileFormatID); err != nil {
			return model.Program{}, err
		}
		program.FileFormatID = *patch.FileFormatID
	}
	if patch.UserLimits != nil {
		program.UserLimits = patch.UserLimits
	}
	if patch.Status != nil {
		program.Status = *patch.Status
	}
	program.UpdatedAt = time.Now().UTC()

	program, err = service.store.ProgramPut(ctx, program)
	if err != nil {
		return model.Program{}, notFound(err, "program", id)
	}
	return program, nil
}

func (service *service) DeleteProgram(ctx context.Context, id string) error {
	return notFound(service.store.ProgramDelete(ctx, id), "program", id)
}

func (service *service) FileFormats() []fileformat.Format {
	return fileformat.List()
}

func (service *service) SampleFile(formatID string) ([]byte, error) {
	format, err := fileformat.Get(formatID)
	if err != nil {
		return nil, fmt.Errorf("%w: file format %s", ErrNotFound, formatID)
	}
	return format.SampleCSV()
}

func checkFileFormat(id string) error {
	if id == "" {
		return nil
	}
	if _, err := fileformat.Get(id); errors.Is(err, fileformat.ErrUnknownFormat) {
		return fmt.Errorf("%w: unknown fileFormatId %q", ErrValidation, id)
	}
	return nil
}
