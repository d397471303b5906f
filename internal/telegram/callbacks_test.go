package telegram

import "testing"

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		data string
		want Action
	}{
		{diaryPageData(3), Action{Kind: ActionDiaryPage, Page: 3}},
		{dreamViewData(12), Action{Kind: ActionDreamView, DreamID: 12}},
		{dreamDeleteAskData(7), Action{Kind: ActionDreamDeleteConfirm, DreamID: 7}},
		{dreamDeleteData(7), Action{Kind: ActionDreamDelete, DreamID: 7}},
		{saveDreamData("voice"), Action{Kind: ActionSaveDream, Value: "voice"}},
		{astrologicalData("text"), Action{Kind: ActionAstrological, Value: "text"}},
		{astrologicalDateData("today", "text"), Action{Kind: ActionAstrologicalDate, DateChoice: "today", Value: "text"}},
		{"main_menu", Action{Kind: ActionMainMenu}},
		{"start_profile", Action{Kind: ActionStartProfile}},
		{"gender:male", Action{Kind: ActionProfileGender, Value: "male"}},
		{"age:18-30", Action{Kind: ActionProfileAge, Value: "18-30"}},
		{"lucid:sometimes", Action{Kind: ActionProfileLucid, Value: "sometimes"}},
		{"profile_step:skip", Action{Kind: ActionProfileSkip}},
		{"about", Action{Kind: ActionAbout}},
		{"donate", Action{Kind: ActionDonate}},
		{"start_first_dream", Action{Kind: ActionStartFirstDream}},
		{"cancel_date_input", Action{Kind: ActionCancelDateInput}},
		{"admin_broadcast", Action{Kind: ActionAdminBroadcast}},
		{"admin_stats", Action{Kind: ActionAdminStats}},
		{"admin_users", Action{Kind: ActionAdminUsers}},
		{"broadcast_confirm", Action{Kind: ActionBroadcastConfirm}},
		{"broadcast_cancel", Action{Kind: ActionBroadcastCancel}},

		// malformed or stale data degrades to unknown, never panics
		{"", Action{Kind: ActionUnknown}},
		{"nonsense", Action{Kind: ActionUnknown}},
		{"diary_page:", Action{Kind: ActionUnknown}},
		{"diary_page:abc", Action{Kind: ActionUnknown}},
		{"diary_page:-1", Action{Kind: ActionUnknown}},
		{"dream_view:", Action{Kind: ActionUnknown}},
		{"dream_view:xyz", Action{Kind: ActionUnknown}},
		{"gender", Action{Kind: ActionUnknown}},
		{"old_button_from_v1", Action{Kind: ActionUnknown}},
	}

	for _, tt := range tests {
		if got := decodeAction(tt.data); got != tt.want {
			t.Errorf("decodeAction(%q) = %+v, want %+v", tt.data, got, tt.want)
		}
	}
}

func TestParseDreamDate(t *testing.T) {
	d, err := parseDreamDate("15.01.2024")
	if err != nil {
		t.Fatalf("parseDreamDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 1 || d.Day() != 15 {
		t.Errorf("parsed %v", d)
	}

	for _, bad := range []string{"2024-01-15", "15/01/2024", "32.01.2024", "сегодня", "", "15.01.1800", "15.01.2500"} {
		if _, err := parseDreamDate(bad); err == nil {
			t.Errorf("parseDreamDate(%q) accepted", bad)
		}
	}
}

func TestDreamPreview(t *testing.T) {
	if got := dreamPreview("короткий сон"); got != "короткий сон" {
		t.Errorf("short text changed: %q", got)
	}
	long := "очень длинное описание сна которое не помещается на кнопку целиком"
	got := dreamPreview(long)
	if len([]rune(got)) != 33 { // 30 runes + "..."
		t.Errorf("preview length = %d runes: %q", len([]rune(got)), got)
	}
	if got := dreamPreview("первая строка\nвторая"); got != "первая строка вторая" {
		t.Errorf("newlines kept: %q", got)
	}
}
