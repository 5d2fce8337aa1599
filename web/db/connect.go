package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the MySQL database named by dsn. The returned handle is
// passed explicitly to everything that needs it.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}

	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return conn, nil
}

// Sync creates or updates every table the service uses.
func Sync(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&User{},
		&ReferralEntry{},
		&Application{},
		&Vendor{},
		&Lawyer{},
		&LogisticsCompany{},
		&ServiceProvider{},
		&CurrencyExchangeAgent{},
		&PayoutRequest{},
		&Notification{},
		&Chat{},
		&ChatMessage{},
		&GatewayPayment{},
	)
}
