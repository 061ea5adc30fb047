package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

// platformConfigID is the primary key of the single platform_config row.
const platformConfigID = 1

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (models.Repository, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.Remittance{}, &models.Contribution{}, &models.RefundClaim{}, &models.PlatformConfig{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreateRemittance(remittance *models.Remittance) error {
	if err := db.Conn.Create(remittance).Error; err != nil {
		return fmt.Errorf("failed to create remittance: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetRemittance(id uint64) (*models.Remittance, error) {
	var remittance models.Remittance
	if err := db.Conn.Where("id = ?", id).First(&remittance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get remittance: %s", err)
	}
	return &remittance, nil
}

func (db *PostgresDB) UpdateRemittance(remittance *models.Remittance) error {
	if err := db.Conn.Save(remittance).Error; err != nil {
		return fmt.Errorf("failed to update remittance: %s", err)
	}
	return nil
}

func (db *PostgresDB) ListRemittancesByCreator(creator string) ([]*models.Remittance, error) {
	var remittances []*models.Remittance
	if err := db.Conn.Where("creator = ?", creator).Order("id").Find(&remittances).Error; err != nil {
		return nil, fmt.Errorf("failed to list remittances by creator: %s", err)
	}
	return remittances, nil
}

func (db *PostgresDB) ListRemittancesByRecipient(recipient string) ([]*models.Remittance, error) {
	var remittances []*models.Remittance
	if err := db.Conn.Where("recipient = ?", recipient).Order("id").Find(&remittances).Error; err != nil {
		return nil, fmt.Errorf("failed to list remittances by recipient: %s", err)
	}
	return remittances, nil
}

// ApplyContribution persists the remittance counters together with the
// cumulative (remittance, contributor) ledger entry in one transaction, so
// the ledger-sum invariant holds at every observation point.
func (db *PostgresDB) ApplyContribution(remittance *models.Remittance, contributor string, amount *models.Amount, timestamp int64) error {
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(remittance).Error; err != nil {
			return err
		}

		var contribution models.Contribution
		err := tx.Where("remittance_id = ? AND contributor = ?", remittance.ID, contributor).First(&contribution).Error
		if err == gorm.ErrRecordNotFound {
			contribution = models.Contribution{
				RemittanceID: remittance.ID,
				Contributor:  contributor,
				Amount:       *amount.Clone(),
				UpdatedAt:    timestamp,
			}
			return tx.Create(&contribution).Error
		}
		if err != nil {
			return err
		}

		contribution.Amount = *contribution.Amount.Add(amount)
		contribution.UpdatedAt = timestamp
		return tx.Save(&contribution).Error
	})
	if err != nil {
		return fmt.Errorf("failed to apply contribution: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetContribution(remittanceID uint64, contributor string) (*models.Amount, error) {
	var contribution models.Contribution
	if err := db.Conn.Where("remittance_id = ? AND contributor = ?", remittanceID, contributor).First(&contribution).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.NewAmount(0), nil
		}
		return nil, fmt.Errorf("failed to get contribution: %s", err)
	}
	return contribution.Amount.Clone(), nil
}

func (db *PostgresDB) ListContributors(remittanceID uint64) ([]string, error) {
	var contributors []string
	if err := db.Conn.Model(&models.Contribution{}).Where("remittance_id = ?", remittanceID).Order("id").Pluck("contributor", &contributors).Error; err != nil {
		return nil, fmt.Errorf("failed to list contributors: %s", err)
	}
	return contributors, nil
}

func (db *PostgresDB) MarkRefundClaimed(remittanceID uint64, contributor string, claimedAt int64) error {
	claim := models.RefundClaim{
		RemittanceID: remittanceID,
		Contributor:  contributor,
		ClaimedAt:    claimedAt,
	}
	if err := db.Conn.Create(&claim).Error; err != nil {
		return fmt.Errorf("failed to mark refund claimed: %s", err)
	}
	return nil
}

func (db *PostgresDB) IsRefundClaimed(remittanceID uint64, contributor string) (bool, error) {
	var claim models.RefundClaim
	if err := db.Conn.Where("remittance_id = ? AND contributor = ?", remittanceID, contributor).First(&claim).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check refund claim: %s", err)
	}
	return true, nil
}

func (db *PostgresDB) EnsurePlatformConfig(defaults *models.PlatformConfig) (*models.PlatformConfig, error) {
	var config models.PlatformConfig
	err := db.Conn.Where("id = ?", platformConfigID).First(&config).Error
	if err == gorm.ErrRecordNotFound {
		config = *defaults
		config.ID = platformConfigID
		if err := db.Conn.Create(&config).Error; err != nil {
			return nil, fmt.Errorf("failed to seed platform config: %s", err)
		}
		db.logger.Info("Platform config seeded ", "owner ", config.Owner, "fee_bps ", config.FeeBps)
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform config: %s", err)
	}
	return &config, nil
}

func (db *PostgresDB) GetPlatformConfig() (*models.PlatformConfig, error) {
	var config models.PlatformConfig
	if err := db.Conn.Where("id = ?", platformConfigID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform config: %s", err)
	}
	return &config, nil
}

func (db *PostgresDB) SavePlatformConfig(config *models.PlatformConfig) error {
	config.ID = platformConfigID
	if err := db.Conn.Save(config).Error; err != nil {
		return fmt.Errorf("failed to save platform config: %s", err)
	}
	return nil
}
