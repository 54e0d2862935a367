package client

import "strings"

// SysMessageKind classifies a free-text system notice. String matching is
// the protocol's only signal here; keeping it in one pure function makes
// the brittleness testable against literal samples.
type SysMessageKind int

const (
	SysNone SysMessageKind = iota
	SysBanListChanged
	SysGreenRoomEnabled
	SysGreenRoomDisabled
)

// ClassifySysMessage inspects a system message for ban and green-room
// state transitions.
func ClassifySysMessage(text string) SysMessageKind {
	switch {
	case strings.Contains(text, "banned"):
		return SysBanListChanged
	case strings.Contains(text, "green room enabled"):
		return SysGreenRoomEnabled
	case strings.Contains(text, "green room disabled"):
		return SysGreenRoomDisabled
	default:
		return SysNone
	}
}
