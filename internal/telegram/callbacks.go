package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is the closed set of inline-button actions. Callback data is
// decoded into an Action once at the boundary and then matched on the
// kind, instead of prefix checks scattered through the handlers.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMainMenu
	ActionStartProfile
	ActionProfileGender
	ActionProfileAge
	ActionProfileLucid
	ActionProfileSkip
	ActionAbout
	ActionDonate
	ActionStartFirstDream
	ActionDiaryPage
	ActionDreamView
	ActionDreamDeleteConfirm
	ActionDreamDelete
	ActionSaveDream
	ActionAstrological
	ActionAstrologicalDate
	ActionCancelDateInput
	ActionAdminBroadcast
	ActionAdminStats
	ActionAdminUsers
	ActionBroadcastConfirm
	ActionBroadcastCancel
)

// Action is one decoded callback.
type Action struct {
	Kind ActionKind
	// Page for diary pagination.
	Page int
	// DreamID for diary detail/delete.
	DreamID uint
	// Value carries the quiz answer or the source kind, depending on Kind.
	Value string
	// DateChoice is today, yesterday or custom.
	DateChoice string
}

// Callback data constructors, kept next to the decoder so the wire format
// lives in one place.
func diaryPageData(page int) string {
	return fmt.Sprintf("diary_page:%d", page)
}

func dreamViewData(id uint) string {
	return fmt.Sprintf("dream_view:%d", id)
}

func dreamDeleteAskData(id uint) string {
	return fmt.Sprintf("dream_delete_confirm:%d", id)
}

func dreamDeleteData(id uint) string {
	return fmt.Sprintf("dream_delete:%d", id)
}

func saveDreamData(source string) string {
	return "save_dream:" + source
}

func astrologicalData(source string) string {
	return "astrological:" + source
}

func astrologicalDateData(choice, source string) string {
	return fmt.Sprintf("astrological_date:%s:%s", choice, source)
}

// decodeAction parses raw callback data. Unrecognized data yields
// ActionUnknown rather than an error: stale buttons from old bot versions
// should be ignored, not crash the handler.
func decodeAction(data string) Action {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case "main_menu":
		return Action{Kind: ActionMainMenu}
	case "start_profile":
		return Action{Kind: ActionStartProfile}
	case "profile_step":
		if len(parts) > 1 && parts[1] == "skip" {
			return Action{Kind: ActionProfileSkip}
		}
	case "gender":
		if len(parts) > 1 {
			return Action{Kind: ActionProfileGender, Value: parts[1]}
		}
	case "age":
		if len(parts) > 1 {
			return Action{Kind: ActionProfileAge, Value: parts[1]}
		}
	case "lucid":
		if len(parts) > 1 {
			return Action{Kind: ActionProfileLucid, Value: parts[1]}
		}
	case "about":
		return Action{Kind: ActionAbout}
	case "donate":
		return Action{Kind: ActionDonate}
	case "start_first_dream":
		return Action{Kind: ActionStartFirstDream}
	case "diary_page":
		if len(parts) > 1 {
			page, err := strconv.Atoi(parts[1])
			if err == nil && page >= 0 {
				return Action{Kind: ActionDiaryPage, Page: page}
			}
		}
	case "dream_view":
		if id, ok := parseID(parts); ok {
			return Action{Kind: ActionDreamView, DreamID: id}
		}
	case "dream_delete_confirm":
		if id, ok := parseID(parts); ok {
			return Action{Kind: ActionDreamDeleteConfirm, DreamID: id}
		}
	case "dream_delete":
		if id, ok := parseID(parts); ok {
			return Action{Kind: ActionDreamDelete, DreamID: id}
		}
	case "save_dream":
		if len(parts) > 1 {
			return Action{Kind: ActionSaveDream, Value: parts[1]}
		}
	case "astrological":
		if len(parts) > 1 {
			return Action{Kind: ActionAstrological, Value: parts[1]}
		}
	case "astrological_date":
		if len(parts) > 2 {
			return Action{Kind: ActionAstrologicalDate, DateChoice: parts[1], Value: parts[2]}
		}
	case "cancel_date_input":
		return Action{Kind: ActionCancelDateInput}
	case "admin_broadcast":
		return Action{Kind: ActionAdminBroadcast}
	case "admin_stats":
		return Action{Kind: ActionAdminStats}
	case "admin_users":
		return Action{Kind: ActionAdminUsers}
	case "broadcast_confirm":
		return Action{Kind: ActionBroadcastConfirm}
	case "broadcast_cancel":
		return Action{Kind: ActionBroadcastCancel}
	}
	return Action{Kind: ActionUnknown}
}

func parseID(parts []string) (uint, bool) {
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
