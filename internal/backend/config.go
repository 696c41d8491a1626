package backend

import (
	"errors"
	"fmt"

	"finsight/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		TransactionsURL: appConfig.TransactionsAPIURL,
		UsersURL:        appConfig.UsersAPIURL,
		AnalyticsURL:    appConfig.AnalyticsAPIURL,
		HTTPTimeout:     appConfig.HTTPTimeout,
		CacheTTL:        appConfig.AnalyticsCacheTTL,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,

		DataDirectory: appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == RemoteBackend {
		if c.TransactionsURL == "" || c.UsersURL == "" || c.AnalyticsURL == "" {
			return errors.New("transactions, users and analytics URLs are required for remote backend")
		}
		if c.AMQPURL != "" && c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required when AMQP is configured")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, MemoryBackend}
}
