package telegram

import "testing"

func TestParsePrompt(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantPrompt string
		wantOK     bool
	}{
		{"plain text", "Tell me a joke", "Tell me a joke", true},
		{"plain text kept raw", "  два пробела  ", "  два пробела  ", true},
		{"empty text", "", "", true},
		{"ask command", "/ask расскажи анекдот", "расскажи анекдот", true},
		{"generate command", "/generate haiku about Go", "haiku about Go", true},
		{"ask uppercase", "/ASK hi", "hi", true},
		{"ask with bot mention", "/ask@TextGenBot привет", "привет", true},
		{"ask without text", "/ask", "", true},
		{"ask with spaces only", "/ask    ", "", true},
		{"start", "/start", "", false},
		{"help with mention", "/help@TextGenBot", "", false},
		{"unknown command", "/foo bar", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, ok := ParsePrompt(tt.text)
			if ok != tt.wantOK {
				t.Errorf("ParsePrompt(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if prompt != tt.wantPrompt {
				t.Errorf("ParsePrompt(%q) prompt = %q, want %q", tt.text, prompt, tt.wantPrompt)
			}
		})
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", "start"},
		{"/Help@TextGenBot", "help"},
		{"  /help extra args", "help"},
		{"/foo", "foo"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := commandName(tt.text); got != tt.want {
				t.Errorf("commandName(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
