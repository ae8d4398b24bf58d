package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
	}{
		{"progress japanese", "たろう 途中経過", Command{Kind: Progress, Name: "たろう"}},
		{"progress english", "Taro progress", Command{Kind: Progress, Name: "Taro"}},
		{"progress mixed case", "Taro PROGRESS", Command{Kind: Progress, Name: "Taro"}},
		{"progress no space", "たろう途中経過", Command{Kind: Progress, Name: "たろう"}},
		{"progress extra whitespace", "  たろう   途中経過  ", Command{Kind: Progress, Name: "たろう"}},
		{"progress without name", "途中経過", Command{Kind: Unknown}},
		{"plain chatter", "今日もやりました", Command{Kind: Unknown}},
		{"empty", "", Command{Kind: Unknown}},
		{"keyword in the middle", "途中経過を教えて", Command{Kind: Unknown}},
		{"multi word name", "山田 太郎 途中経過", Command{Kind: Progress, Name: "山田 太郎"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}
