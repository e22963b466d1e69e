package database

import (
	"log"

	"joyeria-backend/internal/config"
	"joyeria-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Error en AutoMigrate: %v", err)
	}

	log.Println("Conexión a base de datos lista. Migración completada.")
}

// Migrate corre AutoMigrate sobre todos los modelos. Separado de Init para
// que los tests puedan migrar una base sqlite en memoria.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.InventoryItem{},
		&models.Customer{},
		&models.Employee{},
		&models.Sale{},
		&models.SaleItem{},
		&models.SalePayment{},
		&models.AuditLog{},
	)
}
