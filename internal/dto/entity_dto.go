package dto

import (
	"freight-portal/internal/entities"
	"freight-portal/internal/registry"
	"freight-portal/internal/services"
)

type EntitySummaryDTO struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type EntityDescriptorDTO struct {
	Name     string                     `json:"name"`
	Title    string                     `json:"title"`
	IDField  string                     `json:"idField"`
	Fields   []entities.FieldDescriptor `json:"fields"`
	Columns  []services.Column          `json:"columns"`
	Rules    map[string]string          `json:"rules"`
	Lookup   *entities.ReferenceSpec    `json:"lookup,omitempty"`
	Strategy string                     `json:"strategy,omitempty"`
}

func NewEntityDescriptorDTO(e registry.Entity) EntityDescriptorDTO {
	out := EntityDescriptorDTO{
		Name:     e.Name(),
		Title:    e.Title(),
		IDField:  e.IDField(),
		Fields:   e.Descriptors(),
		Columns:  services.Columns(e.DisplayedFields()),
		Rules:    e.Rules(),
		Strategy: e.Strategy(),
	}
	if spec, ok := e.Lookup(); ok {
		out.Lookup = &spec
	}
	return out
}

// RowsQueryDTO — параметры GET .../rows.
type RowsQueryDTO struct {
	Search *string `query:"search" validate:"omitempty,max=200"`
}

// OpenDialogDTO — параметры GET .../dialog.
type OpenDialogDTO struct {
	Mode string `query:"mode" validate:"required,oneof=add edit"`
	ID   string `query:"id" validate:"required_if=Mode edit"`
}

type ImportResponseDTO struct {
	services.ImportResult
	Summary string `json:"summary"`
}
