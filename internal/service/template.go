package service

import "strings"

// genericName substitutes for a recipient with no usable profile names.
const genericName = "there"

// TemplateFields is the flat field set available to message templates.
type TemplateFields struct {
	DisplayName string
	RealName    string
	ChannelID   string
}

// FirstName derives a greeting name: first whitespace token of the real
// name, else the display name, else a generic fallback.
func (f TemplateFields) FirstName() string {
	if parts := strings.Fields(f.RealName); len(parts) > 0 {
		return parts[0]
	}
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return genericName
}

// RenderTemplate substitutes the known {{...}} tokens. Unknown tokens
// pass through untouched; there is no escaping or recursion.
func RenderTemplate(template string, f TemplateFields) string {
	firstName := f.FirstName()

	displayName := f.DisplayName
	if displayName == "" {
		displayName = firstName
	}
	realName := f.RealName
	if realName == "" {
		realName = firstName
	}

	out := template
	out = strings.ReplaceAll(out, "{{first_name}}", firstName)
	out = strings.ReplaceAll(out, "{{display_name}}", displayName)
	out = strings.ReplaceAll(out, "{{real_name}}", realName)
	out = strings.ReplaceAll(out, "{{channel_id}}", f.ChannelID)
	return out
}
