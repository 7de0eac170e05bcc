package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want logger.LogLevel
	}{
		{"production", logger.Warn},
		{"test", logger.Silent},
		{"development", logger.Info},
		{"", logger.Info},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, logLevel(tt.env))
		})
	}
}
