package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SchoolConfig holds school-level branding defaults.
type SchoolConfig struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	DisplayName    string `db:"display_name" json:"display_name"`
	Address        string `db:"address" json:"address"`
	Motto          string `db:"motto" json:"motto"`
	LogoURL        string `db:"logo_url" json:"logo_url"`
	ThemeColor     string `db:"theme_color" json:"theme_color"`
	DefaultVariant string `db:"default_variant" json:"default_variant"`
	PrincipalLabel string `db:"principal_label" json:"principal_label"`
	TeacherLabel   string `db:"teacher_label" json:"teacher_label"`
}

// ComponentList is a JSONB-persisted list of assessment component definitions.
type ComponentList []ComponentDefinition

// Value marshals the component list for persistence.
func (c ComponentList) Value() (driver.Value, error) {
	if c == nil {
		c = ComponentList{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal component list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the component list.
func (c *ComponentList) Scan(value interface{}) error {
	return scanJSON(value, c, "ComponentList")
}

// ClassConfig holds optional class-level visual overrides. Nil pointers mean
// "inherit from the school config".
type ClassConfig struct {
	ClassID            string        `db:"class_id" json:"class_id"`
	Variant            *string       `db:"variant" json:"variant,omitempty"`
	ThemeColor         *string       `db:"theme_color" json:"theme_color,omitempty"`
	LogoURL            *string       `db:"logo_url" json:"logo_url,omitempty"`
	SchoolNameOverride *string       `db:"school_name_override" json:"school_name_override,omitempty"`
	PrincipalLabel     *string       `db:"principal_label" json:"principal_label,omitempty"`
	TeacherLabel       *string       `db:"teacher_label" json:"teacher_label,omitempty"`
	Components         ComponentList `db:"components" json:"components,omitempty"`
}
