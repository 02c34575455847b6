// Package pacing classifies paragraphs of book text by discourse role
// (chapter header, dialogue, narration) and assigns the pause that should
// follow each one when the text is read aloud.
package pacing
