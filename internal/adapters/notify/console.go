package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las oportunidades del ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, opportunities []domain.Opportunity, stats domain.ScanStatistics) error {
	if len(opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities found (%d evaluated, %d skipped no-data)\n",
			time.Now().Format("15:04:05"), stats.TotalEvaluated, stats.SkippedNoData)
		return nil
	}

	if c.table {
		c.printFull(opportunities, stats)
	} else {
		c.printCompact(opportunities, stats)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(opps []domain.Opportunity, stats domain.ScanStatistics) {
	now := time.Now().Format("15:04:05")
	high, medium := countByLiquidity(opps)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d opps / %d eval (%.0f%% pass) H:%d M:%d",
		now, len(opps), stats.TotalEvaluated, stats.PassRate()*100, high, medium)

	shown := 0
	for _, opp := range opps {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s buy%s +%.1f%%",
			opp.Liquidity.Icon(), compactName(opp.Listing.CatalogKey, 25),
			money(opp.Listing.Price), opp.NetProfitPercent)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con el desglose de rechazos.
func (c *Console) printFull(opps []domain.Opportunity, stats domain.ScanStatistics) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d opportunities — %d evaluated, %d passed, %d skipped\n",
		now, len(opps), stats.TotalEvaluated, stats.Passed, stats.SkippedNoData)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Liq", "Item", "Buy", "Ref", "Net", "Margin", "Score", "Ref vol/d")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Liquidity.Icon(),
			truncate(opp.Listing.CatalogKey, 38),
			money(opp.Listing.Price),
			money(opp.Reference.Price),
			fmt.Sprintf("$%.2f", opp.NetProfit/100),
			fmt.Sprintf("%.2f%%", opp.NetProfitPercent),
			fmt.Sprintf("%.1f", opp.LiquidityScore),
			fmt.Sprintf("%d", opp.Reference.DailyVolume),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Buy = precio del listing | Ref = precio de referencia | Net = beneficio tras fees")
	c.printRejectionSummary(stats)
}

// printRejectionSummary imprime el desglose de rechazos por razón.
func (c *Console) printRejectionSummary(stats domain.ScanStatistics) {
	if stats.Failed() == 0 {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  Rejected %d:", stats.Failed())
	for _, reason := range domain.FailureReasons {
		if n := stats.FailedByReason[reason]; n > 0 {
			fmt.Fprintf(&sb, " %s=%d", reason, n)
		}
	}
	fmt.Fprintln(c.out, sb.String())
}

// --- helpers ---

func countByLiquidity(opps []domain.Opportunity) (high, medium int) {
	for _, o := range opps {
		switch o.Liquidity {
		case domain.LiquidityHigh:
			high++
		case domain.LiquidityMedium:
			medium++
		}
	}
	return
}

// money formatea céntimos como dólares.
func money(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
