package database

import (
	"fmt"
	"time"

	"github.com/CUknot/grammable/config"
	"github.com/CUknot/grammable/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// legacyGram describes the authentication columns that used to live on grams.
// Dropping through a model gives the sqlite migrator the schema it needs to
// rebuild the table.
type legacyGram struct {
	Email               string     `gorm:"column:email"`
	EncryptedPassword   string     `gorm:"column:encrypted_password"`
	ResetPasswordToken  string     `gorm:"column:reset_password_token"`
	ResetPasswordSentAt *time.Time `gorm:"column:reset_password_sent_at"`
	RememberCreatedAt   *time.Time `gorm:"column:remember_created_at"`
	SignInCount         int        `gorm:"column:sign_in_count"`
	CurrentSignInAt     *time.Time `gorm:"column:current_sign_in_at"`
	LastSignInAt        *time.Time `gorm:"column:last_sign_in_at"`
	CurrentSignInIP     string     `gorm:"column:current_sign_in_ip"`
	LastSignInIP        string     `gorm:"column:last_sign_in_ip"`
}

func (legacyGram) TableName() string { return "grams" }

var legacyGramColumns = []string{
	"email",
	"encrypted_password",
	"reset_password_token",
	"reset_password_sent_at",
	"remember_created_at",
	"sign_in_count",
	"current_sign_in_at",
	"last_sign_in_at",
	"current_sign_in_ip",
	"last_sign_in_ip",
}

// Connect establishes a connection to the configured database
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		dialector = postgres.Open(cfg.PostgresDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}

	DB = db
	logrus.WithField("driver", cfg.DBDriver).Info("Database connection established")
	return db, nil
}

// Migrate automatically migrates the database schema
func Migrate(db *gorm.DB) error {
	// sqlite drops columns by rebuilding the table, which loses its indexes,
	// so the legacy columns go before AutoMigrate creates them.
	if err := DropLegacyGramColumns(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Gram{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logrus.Info("Database migration completed")
	return nil
}

// DropLegacyGramColumns removes the old authentication columns from grams.
// Columns that are already gone are skipped.
func DropLegacyGramColumns(db *gorm.DB) error {
	m := db.Migrator()
	for _, column := range legacyGramColumns {
		if !m.HasColumn(&legacyGram{}, column) {
			continue
		}
		if err := m.DropColumn(&legacyGram{}, column); err != nil {
			return fmt.Errorf("drop grams.%s: %w", column, err)
		}
		logrus.WithField("column", column).Info("Dropped legacy column from grams")
	}
	return nil
}
