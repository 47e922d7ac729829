package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/liberate/internal/models"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	database *gorm.DB
}

func NewDocumentRepository(database *gorm.DB) *DocumentRepository {
	return &DocumentRepository{database: database}
}

func (repo *DocumentRepository) Find(path string) (models.StoredDocument, bool, error) {
	var document models.StoredDocument
	result := repo.database.Where("path = ?", path).Limit(1).Find(&document)
	if result.Error != nil {
		return models.StoredDocument{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.StoredDocument{}, false, nil
	}
	return document, true, nil
}

// Update runs change against the current body (empty string when absent)
// inside one transaction and stores what it returns.
func (repo *DocumentRepository) Update(path string, ownerID string, change func(current string, found bool) (string, error)) (string, error) {
	var stored string
	err := repo.database.Transaction(func(tx *gorm.DB) error {
		var document models.StoredDocument
		result := tx.Where("path = ?", path).Limit(1).Find(&document)
		if result.Error != nil {
			return result.Error
		}
		found := result.RowsAffected > 0

		next, err := change(document.Body, found)
		if err != nil {
			return err
		}

		document.Path = path
		document.OwnerID = ownerID
		document.Body = next
		document.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&document).Error; err != nil {
			return err
		}
		stored = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

func (repo *DocumentRepository) Delete(path string) error {
	result := repo.database.Where("path = ?", path).Delete(&models.StoredDocument{})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (repo *DocumentRepository) CountByOwner(ownerID string) (int64, error) {
	var count int64
	if err := repo.database.Model(&models.StoredDocument{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
