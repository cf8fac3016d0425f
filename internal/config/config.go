package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type ContractsConfig struct {
	// VATDefaultPercent is used when the company settings store carries no
	// VAT rate. String-encoded decimal, e.g. "5" or "15.0".
	VATDefaultPercent string
	// SecurityDepositDefault is the deposit the company settings store
	// prescribes per contract. Derived, never caller-submitted.
	SecurityDepositDefault string
	Currency               string
	ContractNumberStart    int64
}

type JobsConfig struct {
	OverdueSweepSchedule string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Contracts   ContractsConfig
	Jobs        JobsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Contracts: ContractsConfig{
			VATDefaultPercent:      v.GetString("VAT_DEFAULT_PERCENT"),
			SecurityDepositDefault: v.GetString("SECURITY_DEPOSIT_DEFAULT"),
			Currency:               v.GetString("CURRENCY"),
			ContractNumberStart:    v.GetInt64("CONTRACT_NUMBER_START"),
		},
		Jobs: JobsConfig{
			OverdueSweepSchedule: v.GetString("OVERDUE_SWEEP_SCHEDULE"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7093
	}
	if cfg.Contracts.VATDefaultPercent == "" {
		cfg.Contracts.VATDefaultPercent = "5"
	}
	if cfg.Contracts.SecurityDepositDefault == "" {
		cfg.Contracts.SecurityDepositDefault = "1000"
	}
	if cfg.Contracts.Currency == "" {
		cfg.Contracts.Currency = "AED"
	}
	if cfg.Contracts.ContractNumberStart == 0 {
		cfg.Contracts.ContractNumberStart = 1000
	}
	if cfg.Jobs.OverdueSweepSchedule == "" {
		// nightly, 00:10 UTC
		cfg.Jobs.OverdueSweepSchedule = "10 0 * * *"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if _, err := decimal.NewFromString(cfg.Contracts.VATDefaultPercent); err != nil {
		return fmt.Errorf("VAT_DEFAULT_PERCENT is not a valid decimal: %w", err)
	}
	if _, err := decimal.NewFromString(cfg.Contracts.SecurityDepositDefault); err != nil {
		return fmt.Errorf("SECURITY_DEPOSIT_DEFAULT is not a valid decimal: %w", err)
	}
	if cfg.Contracts.ContractNumberStart < 0 {
		return fmt.Errorf("CONTRACT_NUMBER_START must not be negative")
	}
	return nil
}

// VATDefault returns the parsed default VAT percentage. Load has already
// validated the string.
func (c *Config) VATDefault() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Contracts.VATDefaultPercent)
	return d
}

func (c *Config) SecurityDeposit() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Contracts.SecurityDepositDefault)
	return d
}
