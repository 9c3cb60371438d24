package database

import (
	"fyp-portal/internal/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date. A fresh database gets the whole
// schema through InitSchema; later changes go into the migration list.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// extension requests remember the date the owner settled on
			ID: "202510190001",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&models.ExtensionRequest{}, "FinalEndDate") {
					return nil
				}
				return tx.Migrator().AddColumn(&models.ExtensionRequest{}, "FinalEndDate")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&models.ExtensionRequest{}, "FinalEndDate")
			},
		},
	})

	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&models.User{},
			&models.Project{},
			&models.UniversityApproval{},
			&models.SupervisionRequest{},
			&models.Selection{},
			&models.SelectionMember{},
			&models.Submission{},
			&models.Review{},
			&models.ModificationRequest{},
			&models.ExtensionRequest{},
			&models.Notification{},
			&models.AuditLog{},
		)
	})

	return m.Migrate()
}
