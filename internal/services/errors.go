package services

import "errors"

var (
	// ErrTemplateNameTaken indicates another template already uses the name
	ErrTemplateNameTaken = errors.New("a template with this name already exists")
	// ErrChannelNotConfigured indicates the user has no usable config for the channel
	ErrChannelNotConfigured = errors.New("email channel is not configured")
	// ErrNothingToExport indicates an export was requested with no document ids
	ErrNothingToExport = errors.New("no document ids to export")
	// ErrMixedTemplates indicates a batch export spans more than one template
	ErrMixedTemplates = errors.New("documents in a batch export must share a template")
)
