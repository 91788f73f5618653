package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilterList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single value", "BUY_RECORDED", []string{"BUY_RECORDED"}},
		{"lower case", "sell_recorded", []string{"SELL_RECORDED"}},
		{"comma and space", "BUY_RECORDED, SELL_RECORDED", []string{"BUY_RECORDED", "SELL_RECORDED"}},
		{"space only separator", "BUY_RECORDED SELL_RECORDED", []string{"BUY_RECORDED", "SELL_RECORDED"}},
		{"trailing comma", "BUY_UPDATED,", []string{"BUY_UPDATED"}},
		{"only separators", " , ,, ", nil},
		{"duplicates keep first position", "backup_completed,BUY_RECORDED,BACKUP_COMPLETED", []string{"BACKUP_COMPLETED", "BUY_RECORDED"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFilterList(tt.input))
		})
	}
}
