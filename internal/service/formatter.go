package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"marketpulse/internal/domain"
)

// Digest is everything rendered into one recipient's message
type Digest struct {
	Date         time.Time
	Observations []domain.NormalizedObservation
	Signals      []*domain.Signal
	Context      *domain.ContextResult
	Goals        []domain.Goal
	Quote        *domain.Quote
}

// Formatter renders digests as Telegram HTML
type Formatter struct {
	location *time.Location
	vi       *message.Printer
	en       *message.Printer
}

// NewFormatter creates a formatter that prints dates in loc
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{
		location: loc,
		vi:       message.NewPrinter(language.Vietnamese),
		en:       message.NewPrinter(language.AmericanEnglish),
	}
}

// Render builds the message. Empty sections are omitted.
func (f *Formatter) Render(d Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>📊 Bản tin thị trường %s</b>\n", d.Date.In(f.location).Format("02/01/2006"))

	if len(d.Observations) > 0 {
		b.WriteString("\n<b>💰 Giá thị trường</b>\n")
		for _, o := range d.Observations {
			fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(seriesLabel(o.Series())), f.price(o.Value, o.Unit))
		}
	}

	if len(d.Signals) > 0 {
		b.WriteString("\n<b>📈 Tín hiệu</b>\n")
		for _, s := range d.Signals {
			fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(seriesLabel(s.Series)), f.direction(s))
		}
	}

	if d.Context != nil {
		b.WriteString("\n<b>🧭 Bối cảnh</b>\n")
		fmt.Fprintf(&b, "%s (%s): %s\n",
			html.EscapeString(d.Context.Context),
			html.EscapeString(d.Context.Severity),
			html.EscapeString(d.Context.Summary),
		)
	}

	if len(d.Goals) > 0 {
		b.WriteString("\n<b>🎯 Mục tiêu tuần</b>\n")
		for _, g := range d.Goals {
			fmt.Fprintf(&b, "• <b>%s</b> (%s - %s)\n",
				html.EscapeString(g.Title),
				g.StartDate.In(f.location).Format("02/01"),
				g.EndDate.In(f.location).Format("02/01"),
			)
			if g.Description != "" {
				fmt.Fprintf(&b, "  %s\n", html.EscapeString(g.Description))
			}
		}
	}

	if d.Quote != nil && d.Quote.Content != "" {
		fmt.Fprintf(&b, "\n<i>\"%s\"</i>", html.EscapeString(d.Quote.Content))
		if d.Quote.Author != "" {
			fmt.Fprintf(&b, " - %s", html.EscapeString(d.Quote.Author))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (f *Formatter) price(v decimal.Decimal, unit string) string {
	switch unit {
	case domain.UnitUSD:
		return f.en.Sprintf("$%.2f", v.InexactFloat64())
	case domain.UnitPoint:
		return f.vi.Sprintf("%.2f điểm", v.InexactFloat64())
	}
	return f.vi.Sprintf("%.0f %s", v.InexactFloat64(), unit)
}

func (f *Formatter) direction(s *domain.Signal) string {
	switch s.Direction {
	case domain.DirectionUp:
		return f.vi.Sprintf("⬆️ Tăng %.2f%%", s.MagnitudePercent)
	case domain.DirectionDown:
		return f.vi.Sprintf("⬇️ Giảm %.2f%%", s.MagnitudePercent)
	}
	return "➡️ Ổn định"
}

// seriesLabel is the human label for a series
func seriesLabel(k domain.SeriesKey) string {
	switch k.Asset {
	case domain.AssetGold:
		switch k.Side {
		case domain.SideBuy:
			return "Vàng SJC (Mua)"
		case domain.SideSell:
			return "Vàng SJC (Bán)"
		}
		return "Vàng SJC"
	case domain.AssetUSD:
		return "USD/VND"
	case domain.AssetCrypto:
		switch k.SubType {
		case "BTC":
			return "Bitcoin"
		case "ETH":
			return "Ethereum"
		}
		return "Crypto " + k.SubType
	case domain.AssetStock:
		return "VN-Index"
	}
	return k.String()
}
