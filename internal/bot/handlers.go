package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pricing"
	"gopkg.in/telebot.v4"
)

const (
	queryTimeout   = 10 * time.Second
	topScanLimit   = 500
	topResultLimit = 5
)

var errMissingCategory = errors.New("category argument is required")

const helpText = `Price watch commands:
/categories - monitored categories
/report <category> - price summary of a category
/top <category> - biggest current discounts`

// startHandler process command /start.
func (b *Bot) startHandler(c telebot.Context) error {
	b.log.Info("User started the bot", "username", username(c))

	if err := c.Send(helpText); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

func (b *Bot) categoriesHandler(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	categories, err := b.reader.ListCategories(ctx)
	if err != nil {
		return b.replyFailure(c, "bot.categoriesHandler", err)
	}

	if len(categories) == 0 {
		return b.reply(c, "No categories collected yet.")
	}

	return b.reply(c, "Categories:\n"+strings.Join(categories, "\n"))
}

func (b *Bot) reportHandler(c telebot.Context) error {
	category, err := categoryArg(c)
	if err != nil {
		return b.reply(c, "Usage: /report <category>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	report, err := b.reader.CategoryReport(ctx, category)
	if err != nil {
		return b.replyFailure(c, "bot.reportHandler", err)
	}

	return b.reply(c, formatReport(report))
}

func (b *Bot) topHandler(c telebot.Context) error {
	category, err := categoryArg(c)
	if err != nil {
		return b.reply(c, "Usage: /top <category>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	products, err := b.reader.ListProducts(ctx, models.ProductFilter{Category: category, Limit: topScanLimit})
	if err != nil {
		return b.replyFailure(c, "bot.topHandler", err)
	}

	return b.reply(c, formatTop(category, topDiscounts(products, topResultLimit)))
}

func (b *Bot) reply(c telebot.Context, text string) error {
	if err := c.Send(text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

func (b *Bot) replyFailure(c telebot.Context, opn string, err error) error {
	b.log.Error("failed to read prices", "op", opn, "username", username(c), "error", err)
	return b.reply(c, "Sorry, prices are unavailable right now.")
}

func categoryArg(c telebot.Context) (string, error) {
	args := c.Args()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errMissingCategory
	}

	return strings.TrimSpace(args[0]), nil
}

func username(c telebot.Context) string {
	if s := c.Sender(); s != nil {
		return s.Username
	}
	return ""
}

// topDiscounts returns up to n discounted products, biggest discount first.
func topDiscounts(products []models.Product, n int) []models.Product {
	discounted := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.DiscountPercent != nil && *p.DiscountPercent > 0 {
			discounted = append(discounted, p)
		}
	}

	slices.SortStableFunc(discounted, func(a, b models.Product) int {
		switch {
		case *a.DiscountPercent > *b.DiscountPercent:
			return -1
		case *a.DiscountPercent < *b.DiscountPercent:
			return 1
		default:
			return 0
		}
	})

	return discounted[:min(n, len(discounted))]
}

func formatReport(r *models.CategoryReport) string {
	if r.TotalProducts == 0 {
		return fmt.Sprintf("No products collected for %q.", r.Category)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Category: %s\nProducts: %d\n", r.Category, r.TotalProducts)
	if r.MinPrice != nil && r.MaxPrice != nil && r.AvgPrice != nil {
		fmt.Fprintf(&sb, "Min: R$ %s\nAvg: R$ %s\nMax: R$ %s\n",
			pricing.FormatBRL(*r.MinPrice), pricing.FormatBRL(*r.AvgPrice), pricing.FormatBRL(*r.MaxPrice))
	}
	if run := r.LastRun; run != nil {
		fmt.Fprintf(&sb, "Last run: %s (%s), %d seen, %d new",
			run.StartedAt.UTC().Format(time.DateTime), run.Status, run.Totals.Seen, run.Totals.New)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatTop(category string, products []models.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("No discounted products in %q.", category)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top discounts in %s:", category)
	for i, p := range products {
		fmt.Fprintf(&sb, "\n%d. %s\n   R$ %s (-%.1f%%)\n   %s",
			i+1, p.Name, pricing.FormatBRL(p.CurrentPrice), *p.DiscountPercent, p.URL)
	}

	return sb.String()
}
