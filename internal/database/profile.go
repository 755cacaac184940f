package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thereayou/cipherchat/internal/models"
)

func notFound(err error, userID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: profile %s", models.ErrNotFound, userID)
	}
	return fmt.Errorf("%w: %v", models.ErrStorage, err)
}

// SaveProfile creates the profile or overwrites an existing one.
func (d *Database) SaveProfile(p *models.UserProfile) error {
	if err := d.db.Save(p).Error; err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

func (d *Database) GetProfile(userID string) (*models.UserProfile, error) {
	p := models.UserProfile{}
	if err := d.db.First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, userID)
	}
	return &p, nil
}

// PatchProfile applies a merge-patch inside a transaction.
func (d *Database) PatchProfile(userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	var out models.UserProfile
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "user_id = ?", userID).Error; err != nil {
			return notFound(err, userID)
		}
		patch.Apply(&out)
		out.LastActive = time.Now()
		if err := tx.Save(&out).Error; err != nil {
			return fmt.Errorf("%w: %v", models.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPresence stores a presence status and bumps last_active.
func (d *Database) SetPresence(userID string, status models.PresenceStatus, at time.Time) (*models.UserProfile, error) {
	res := d.db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"status": status, "last_active": at})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: profile %s", models.ErrNotFound, userID)
	}
	return d.GetProfile(userID)
}

// GetProfiles loads the profiles that exist among userIDs, keyed by id.
func (d *Database) GetProfiles(userIDs []string) (map[string]models.UserProfile, error) {
	out := make(map[string]models.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.UserProfile
	if err := d.db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	for _, p := range rows {
		out[p.UserID] = p
	}
	return out, nil
}

// Username returns the display name for userID, or userID itself when no
// profile exists.
func (d *Database) Username(userID string) string {
	p, err := d.GetProfile(userID)
	if err != nil || p.Username == "" {
		return userID
	}
	return p.Username
}
