// Package dialogs drives multi-turn dialogs over persisted conversation state.
//
// The dialog stack lives in a DialogState property of conversation state, so
// a dialog waiting for input survives process restarts: every turn the host
// creates a DialogContext, continues the active dialog and, when nothing is
// active, begins a new one. Each stack entry carries an opaque JSON state blob
// owned by the dialog at that position.
package dialogs
