// Package audit registra quién hizo qué sobre cada entidad del sistema.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"
)

type LogOptions struct {
	BranchID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog persiste una entrada de auditoría. Los snapshots se serializan a
// JSON; si no hay snapshot se guarda "null" para que la columna siga siendo
// JSON válido.
func WriteLog(opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("no se pudo guardar el log de auditoría: %w", err)
	}

	return nil
}

// Record escribe el log y solo reporta el error; una falla de auditoría no
// debe tumbar la operación de negocio que la originó.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		slog.Error("auditoría fallida",
			"entity_type", opts.EntityType,
			"entity_id", opts.EntityID,
			"error", err,
		)
	}
}
