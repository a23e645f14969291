package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const checkedPrefix = "✅ "

// optionsKeyboard lays the choices out two per row as a reply keyboard.
// Options the user picked last time carry a check prefix so a returning
// user can see their saved selection.
func optionsKeyboard(options []string, selected []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for _, opt := range options {
		label := opt
		if isSelected(opt, selected) {
			label = checkedPrefix + opt
		}
		row = append(row, tgbotapi.NewKeyboardButton(label))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func isSelected(opt string, selected []string) bool {
	for _, s := range selected {
		if strings.EqualFold(s, opt) {
			return true
		}
	}
	return false
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(false)
}
