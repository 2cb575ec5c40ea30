package database

import (
	"fmt"

	"gorm.io/gorm"
)

// ReplaceChildren deletes every T row whose foreignKey equals parentID and inserts rows.
// Call it inside a transaction so readers never observe the empty intermediate state.
func ReplaceChildren[T any](tx *gorm.DB, foreignKey string, parentID uint, rows []T) error {
	if err := tx.Where(foreignKey+" = ?", parentID).Delete(new(T)).Error; err != nil {
		return fmt.Errorf("delete children: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert children: %w", err)
	}
	return nil
}

// ReplaceSkills swaps the whole skill list of a profile atomically.
func ReplaceSkills(tx *gorm.DB, profileID uint, skills []Skill) error {
	for i := range skills {
		skills[i].ID = 0
		skills[i].ProfileID = profileID
	}
	return ReplaceChildren(tx, "profile_id", profileID, skills)
}
