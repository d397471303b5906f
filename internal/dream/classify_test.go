package dream

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  Category
	}{
		{"🌙 Твой сон о полете говорит о стремлении к свободе.", CategoryDream},
		{"🔮 Луна в Скорпионе в эту ночь...", CategoryDream},
		{"❓ Расскажи, что ты чувствовал во сне?", CategoryClarification},
		{"💭 Рад поговорить! Но я лучше всего разбираю сны.", CategoryChat},
		{"Привет! Чем могу помочь?", CategoryUnknown},
		{"", CategoryUnknown},
		// Sentinel must be the first rune, not merely present.
		{"Сон 🌙 о полете", CategoryUnknown},
		// Leading whitespace is not stripped; the model is expected to
		// start the reply with the sentinel.
		{" 🌙 сон", CategoryUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.reply); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{CategoryDream, "dream"},
		{CategoryClarification, "question"},
		{CategoryChat, "chat"},
		{CategoryUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
