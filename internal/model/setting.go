package model

type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeInteger SettingType = "integer"
	SettingTypeJSON    SettingType = "json"
)

type SystemSetting struct {
	Base
	Key         string      `db:"key" json:"key"`
	Value       string      `db:"value" json:"value"`
	Type        SettingType `db:"value_type" json:"value_type"`
	Description string      `db:"description" json:"description,omitempty"`
	IsPublic    bool        `db:"is_public" json:"is_public"`
}

type UpsertSettingRequest struct {
	Key         string `json:"key" binding:"required,max=200"`
	Value       string `json:"value" binding:"required,max=4000"`
	Type        string `json:"value_type" binding:"required,oneof=string boolean integer json"`
	Description string `json:"description" binding:"max=500"`
	IsPublic    bool   `json:"is_public"`
}
