package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"fliplister/internal/config"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// Send 发送分析完成邮件。配置不全或收件人为空时静默跳过，
// 通知失败不应该影响 pipeline 主流程。
func (n *EmailNotifier) Send(ctx context.Context, report *AnalysisReport, toEmail string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[FlipLister] Pricing ready: %s", report.ItemName))

	m.SetBody("text/html", n.buildHTMLBody(report))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email notification sent",
		slog.String("to", toEmail),
		slog.String("listing_id", report.ListingID))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(report *AnalysisReport) string {
	priceLine := fmt.Sprintf("$%s", report.Recommended.StringFixed(2))
	rangeLine := fmt.Sprintf("$%s - $%s", report.RangeMin.StringFixed(2), report.RangeMax.StringFixed(2))

	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .price { font-size: 26px; font-weight: bold; color: #16a34a; margin: 8px 0 4px; }
  .range { font-size: 14px; color: #6b7280; margin-bottom: 16px; }
  .title { font-size: 16px; margin-bottom: 12px; }
  .insight { font-size: 14px; background: #f1f5f9; border-radius: 8px; padding: 12px; margin-bottom: 12px; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[FlipLister] Pricing analysis ready</div>
    <div class="content">
      <div class="title">%s (%s)</div>
      <div class="price">%s</div>
      <div class="range">Suggested range: %s</div>
      <div class="insight">%s</div>
      <div class="footer">Based on %d completed sales. Best channel: %s</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template,
		report.ItemName, report.Condition,
		priceLine, rangeLine,
		report.Insight,
		report.SoldCount, report.TopChannel)
}
