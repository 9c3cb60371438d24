package database

import (
	"encoding/json"

	"fyp-portal/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateAuditLog writes a journal entry on db, which may be a transaction.
// details is marshalled to JSON; nil means no details.
func CreateAuditLog(db *gorm.DB, actorID, entity, entityID, action string, details any) error {
	record := models.AuditLog{
		ID:       models.NewID(),
		ActorID:  actorID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		record.Details = datatypes.JSON(raw)
	}
	return db.Create(&record).Error
}

func ListAuditLogs(db *gorm.DB, entity, entityID string, limit int) ([]models.AuditLog, error) {
	q := db.Order("created_at desc")
	if entity != "" {
		q = q.Where("entity = ?", entity)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var logs []models.AuditLog
	err := q.Find(&logs).Error
	return logs, err
}
