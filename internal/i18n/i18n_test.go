package i18n

import (
	"context"
	"strings"
	"testing"
)

func TestTranslations(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		lang  string
		msgID string
		want  string
	}{
		{"en", "ErrNoAttemptsLeft", "You have no attempts remaining for this activity."},
		{"ru", "ErrNoAttemptsLeft", "У вас не осталось попыток для этого задания."},
		{"en", "ErrAlreadyShared", "You have already shared a conversation for this activity."},
		{"en", "ErrEmptyMessage", "The message cannot be empty."},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.msgID, func(t *testing.T) {
			ctx := WithLocalizer(context.Background(), NewLocalizer(tt.lang))
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestTemplatedTranslation(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	got := Td(ctx, "ErrProviderFailure", map[string]any{"Message": "model overloaded"})
	if !strings.Contains(got, "model overloaded") {
		t.Errorf("templated message should carry the provider text, got %q", got)
	}
}

func TestFallbacks(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// No localizer in context falls back to the default language.
	if got := T(context.Background(), "ErrEmptyMessage"); got != "The message cannot be empty." {
		t.Errorf("unexpected fallback translation %q", got)
	}

	// Unknown IDs come back verbatim rather than breaking the response.
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("unknown ID should echo, got %q", got)
	}
}
