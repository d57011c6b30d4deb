package copywriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Input 是文案生成的输入。
type Input struct {
	ItemName    string
	Description string
	Condition   string
	Price       decimal.Decimal
}

// Copy 是面向各渠道的成品文案。
type Copy struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	FacebookCopy     string   `json:"facebook_copy"`
	ShortDescription string   `json:"short_description"`
	Hashtags         []string `json:"hashtags"`
	Keywords         []string `json:"keywords"`
	BulletPoints     []string `json:"bullet_points"`
	CallToAction     string   `json:"call_to_action"`
	ShippingNotes    string   `json:"shipping_notes"`
}

// Generator 生成 listing 文案。
type Generator interface {
	Generate(ctx context.Context, in Input) (Copy, error)
}

// TemplateGenerator 用固定模板生成文案，确定性输出，离线可用。
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate 实现 Generator。
func (g *TemplateGenerator) Generate(_ context.Context, in Input) (Copy, error) {
	price := in.Price.StringFixed(2)
	shortDesc := truncate(in.Description, 100)

	return Copy{
		Title: fmt.Sprintf("%s - %s", in.ItemName, in.Condition),
		Description: fmt.Sprintf("%s\n\nCondition: %s\nPrice: $%s",
			in.Description, in.Condition, price),
		FacebookCopy: fmt.Sprintf("%s for sale!\n\n%s\n\nCondition: %s\n$%s\n\nLocal pickup available. Message me with questions!",
			in.ItemName, truncate(in.Description, 200), in.Condition, price),
		ShortDescription: shortDesc,
		Hashtags:         []string{"forsale", "marketplace"},
		Keywords:         strings.Fields(strings.ToLower(in.ItemName)),
		BulletPoints: []string{
			fmt.Sprintf("Condition: %s", in.Condition),
			fmt.Sprintf("Priced to sell at $%s", price),
			"Local pickup available",
		},
		CallToAction:  "Message me to arrange pickup!",
		ShippingNotes: "Local pickup preferred",
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
