package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "north branch", NormalizeSpace("  north \t  branch \n"))
	assert.Equal(t, "", NormalizeSpace("   "))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, SplitList(" 1, ;2\n3 "))
	assert.Equal(t, []string{}, SplitList(""))
}

func TestFormatDateTime(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)
	assert.Equal(t, "2026-01-02 15:04:05", FormatDateTime(at))
}
