package domain

import "strings"

// Menu — пункт навигационного меню приложения.
type Menu struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Icon string `json:"icon,omitempty" bson:"icon,omitempty"`
	URL  string `json:"url,omitempty" bson:"url,omitempty"`
}

func (m Menu) GetID() string { return m.ID }

func (m Menu) WithID(id string) Menu {
	m.ID = id
	return m
}

func (m Menu) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ValidationErrors{ErrMenuNameRequired}
	}
	return nil
}
