package bot

import (
	"fmt"

	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
)

// MainMenu is the keyboard shown by /start and /menu.
func MainMenu(enabled bool) [][]Button {
	toggle := "🔔 알림 켜기"
	if enabled {
		toggle = "🔕 알림 끄기"
	}
	return [][]Button{
		{{Label: "💰 현재가", Action: ActionPrice}, {Label: "📋 호가", Action: ActionOrderBook}},
		{{Label: "📈 차트", Action: ActionChart}, {Label: "⚙️ 알림 설정", Action: ActionSettings}},
		{{Label: toggle, Action: ActionToggle}, {Label: "ℹ️ 도움말", Action: ActionHelp}},
	}
}

// ThresholdMenu offers every selectable threshold and marks the current one.
func ThresholdMenu(current model.Threshold) [][]Button {
	row := make([]Button, 0, len(model.Thresholds))
	for _, t := range model.Thresholds {
		label := notifier.FormatThresholdValue(t)
		if t == current {
			label = "✅ " + label
		}
		row = append(row, Button{Label: label, Action: ActionSetThreshold, Data: fmt.Sprintf("%g", float64(t))})
	}
	return [][]Button{row, backRow()}
}

func backRow() []Button {
	return []Button{{Label: "⬅️ 메뉴", Action: ActionMenu}}
}
