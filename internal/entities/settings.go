package entities

import (
	"github.com/feridsherif/crms-frontend/internal/domain"
)

// SocialSettingsForm holds the public profile links of the organisation.
type SocialSettingsForm struct {
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,url,max=255"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,url,max=255"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,url,max=255"`
	LinkedIn  string `json:"linkedin,omitempty" validate:"omitempty,url,max=255"`
	YouTube   string `json:"youtube,omitempty" validate:"omitempty,url,max=255"`
}

// NotificationSettingsForm toggles the delivery channels. Every channel must
// be sent explicitly.
type NotificationSettingsForm struct {
	Email *bool `json:"emailNotifications" validate:"required"`
	SMS   *bool `json:"smsNotifications" validate:"required"`
	Push  *bool `json:"pushNotifications" validate:"required"`
}

// SettingsSection is a single-shot form posted to the backend, outside the
// entity CRUD surface.
type SettingsSection struct {
	Name  string
	Label string
	// Route is mounted under /api/user-management.
	Route string
	// Path is the backend endpoint receiving the POST.
	Path string
	// Multipart sections forward the client's form data unchanged; the rest
	// are JSON validated against Form.
	Multipart bool
	Form      func() any
	// Success is the confirmation message. Empty passes the backend body
	// through instead.
	Success string
}

// Validate checks a JSON section payload and returns the cleaned copy.
func (s SettingsSection) Validate(payload map[string]any) (map[string]any, error) {
	if s.Form == nil {
		return nil, domain.ValidationError{Msg: s.Label + " expects form data"}
	}
	return validateForm(s.Form(), payload)
}

// Definition lets settings calls share the entity logging and error paths.
func (s SettingsSection) Definition() Definition {
	return Definition{Name: "settings", Label: s.Label}
}

var settingsSections = []SettingsSection{
	{
		Name:      "general",
		Label:     "Settings",
		Route:     "/settings/general",
		Path:      "/admin/settings",
		Multipart: true,
		Success:   "Settings updated successfully",
	},
	{
		Name:    "social",
		Label:   "Social settings",
		Route:   "/settings/social",
		Path:    "/admin/settings/social",
		Form:    func() any { return &SocialSettingsForm{} },
		Success: "Social settings updated successfully",
	},
	{
		Name:    "notifications",
		Label:   "Notification settings",
		Route:   "/settings/notifications",
		Path:    "/admin/settings/notifications",
		Form:    func() any { return &NotificationSettingsForm{} },
		Success: "Notification settings updated successfully",
	},
	{
		Name:      "profile",
		Label:     "Profile",
		Route:     "/account/profile",
		Path:      "/account/profile",
		Multipart: true,
	},
}

// Settings lists the settings sections in mount order.
func Settings() []SettingsSection {
	return append([]SettingsSection(nil), settingsSections...)
}

// LookupSettings finds a section by name.
func LookupSettings(name string) (SettingsSection, bool) {
	for _, s := range settingsSections {
		if s.Name == name {
			return s, true
		}
	}
	return SettingsSection{}, false
}
