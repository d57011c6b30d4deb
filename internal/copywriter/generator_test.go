package copywriter

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTemplateGenerator_Generate(t *testing.T) {
	g := NewTemplateGenerator()

	in := Input{
		ItemName:    "Nintendo Switch OLED",
		Description: "Barely used console with original box and all cables.",
		Condition:   "like-new",
		Price:       decimal.RequireFromString("189.5"),
	}

	c, err := g.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if c.Title != "Nintendo Switch OLED - like-new" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if !strings.Contains(c.Description, "Price: $189.50") {
		t.Errorf("description should carry 2dp price, got %q", c.Description)
	}
	if got, want := strings.Join(c.Keywords, " "), "nintendo switch oled"; got != want {
		t.Errorf("keywords = %q, want %q", got, want)
	}
	if len(c.BulletPoints) != 3 {
		t.Fatalf("expected 3 bullet points, got %d", len(c.BulletPoints))
	}
	if !strings.Contains(c.FacebookCopy, "Local pickup available") {
		t.Errorf("facebook copy missing pickup line: %q", c.FacebookCopy)
	}
}

func TestTemplateGenerator_TruncatesLongDescription(t *testing.T) {
	g := NewTemplateGenerator()

	long := strings.Repeat("x", 500)
	c, err := g.Generate(context.Background(), Input{
		ItemName:    "Desk",
		Description: long,
		Condition:   "good",
		Price:       decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(c.ShortDescription) != 100 {
		t.Errorf("short description should cap at 100 chars, got %d", len(c.ShortDescription))
	}
	if !strings.Contains(c.FacebookCopy, strings.Repeat("x", 200)) {
		t.Errorf("facebook copy should keep first 200 chars of description")
	}
}
