package notification

import (
	"fmt"
	"sort"
	"strings"

	"crossbot/internal/model"
)

// FormatSignal renders a confirmed signal into an alert. Every gating
// criterion appears in the body so the alert is auditable on its own.
func FormatSignal(sig *model.Signal) Alert {
	f := sig.Features

	var b strings.Builder
	fmt.Fprintf(&b, "Price: $%.2f | EMA200: $%.2f\n", sig.Price, sig.EMA200)
	fmt.Fprintf(&b, "EMA Expansion: %.2f%%\n", f.ExpansionSpread*100)
	fmt.Fprintf(&b, "EMA200 Change: +%.2f%% since cross\n", f.SlopeRatio*100)
	fmt.Fprintf(&b, "ADX 15m: %.1f | 1h: %.1f\n", f.ADX15m, f.ADX1h)
	fmt.Fprintf(&b, "RSI 15m: %.1f | 1h: %.1f\n", f.RSI15m, f.RSI1h)
	fmt.Fprintf(&b, "Volume at Cross: %.1fx\n", f.VolumeRatio)
	b.WriteString("\nALL CRITERIA MET")

	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("CONFIRMED SIGNAL: %s (%s)", sig.Symbol, sig.Timeframe),
		Message: b.String(),
		Signal:  sig,
	}
}

// FormatError renders an error notice with optional context pairs.
func FormatError(errMessage string, context map[string]string) Alert {
	var b strings.Builder
	b.WriteString(errMessage)
	if len(context) > 0 {
		b.WriteString("\n\nContext:")
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s: %s", k, context[k])
		}
	}
	return Alert{Level: AlertCritical, Title: "ERROR", Message: b.String()}
}

// FormatStatus renders a bot status update from key-value pairs,
// sorted for stable output.
func FormatStatus(status map[string]string) Alert {
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", k, status[k])
	}
	return Alert{Level: AlertInfo, Title: "Bot Status Update", Message: b.String()}
}
