package models

type MoodOption struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

func DefaultMoodOptions() []MoodOption {
	return []MoodOption{
		{Emoji: "☀️", Label: "Great"},
		{Emoji: "😊", Label: "Good"},
		{Emoji: "😐", Label: "Okay"},
		{Emoji: "😔", Label: "Sad"},
		{Emoji: "😠", Label: "Angry"},
	}
}

func IsMoodOption(symbol string) bool {
	for _, option := range DefaultMoodOptions() {
		if option.Emoji == symbol {
			return true
		}
	}
	return false
}
