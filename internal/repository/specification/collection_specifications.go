package specification

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NameOrDescriptionLike is case-insensitive.
type NameOrDescriptionLike struct {
	Term string
}

func (s NameOrDescriptionLike) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Term + "%"
	return db.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
}

type ByTag struct {
	Tag string
}

func (s ByTag) Apply(db *gorm.DB) *gorm.DB {
	raw, _ := json.Marshal([]string{s.Tag})
	return db.Where("tags @> ?::jsonb", string(raw))
}

type IsPublic struct{}

func (s IsPublic) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_public = ?", true)
}

type ByParentID struct {
	ParentID uuid.UUID
}

func (s ByParentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("parent_id = ?", s.ParentID)
}

// AccessibleBy matches owner, explicit user grant, any shared role, or public.
type AccessibleBy struct {
	UserID string
	Roles  []string
}

func (s AccessibleBy) Apply(db *gorm.DB) *gorm.DB {
	user, _ := json.Marshal([]string{s.UserID})
	cond := db.Session(&gorm.Session{NewDB: true}).
		Where("is_public = ?", true).
		Or("owner_id::text = ?", s.UserID).
		Or("access_users @> ?::jsonb", string(user))
	if len(s.Roles) > 0 {
		cond = cond.Or("jsonb_exists_any(access_roles, ARRAY[?]::text[])", s.Roles)
	}
	return db.Where(cond)
}
