package config

import (
	"github.com/gotify/configor"
)

var Conf *Configuration

type Configuration struct {
	Socket struct {
		BaseUrl           string `default:"wss://api.job-market.local/ws/" env:"SOCKET_BASE_URL"`
		ReconnectBaseMs   int    `default:"1000" env:"SOCKET_RECONNECT_BASE_MS"`
		ReconnectMaxMs    int    `default:"30000" env:"SOCKET_RECONNECT_MAX_MS"`
		ReconnectAttempts int    `default:"5" env:"SOCKET_RECONNECT_ATTEMPTS"`
		UserID            string `default:"" env:"SOCKET_USER_ID"`
		Token             string `default:"" env:"SOCKET_TOKEN"`
	}
	QuickSearch struct {
		OfferTTLMin         int `default:"15" env:"QS_OFFER_TTL_MIN"`
		CodeTTLMin          int `default:"10" env:"QS_CODE_TTL_MIN"`
		ExpirySweepSec      int `default:"60" env:"QS_EXPIRY_SWEEP_SEC"`
		ExpiryFirstDelaySec int `default:"10" env:"QS_EXPIRY_FIRST_DELAY_SEC"`
	}
	Database struct {
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"quicksearch" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	Wallet struct {
		BaseUrl   string `default:"" env:"WALLET_BASE_URL"`
		ApiKey    string `default:"" env:"WALLET_API_KEY"`
		TimeoutMs int    `default:"5000" env:"WALLET_TIMEOUT_MS"`
	}
	Smtp struct {
		User       string `default:"" env:"SMTP_USER"`
		Password   string `default:"" env:"SMTP_PASSWORD"`
		Host       string `default:"" env:"SMTP_HOST"`
		Port       string `default:"" env:"SMTP_PORT"`
		TLSEnabled *bool  `default:"true" env:"SMTP_TLS_ENABLED"`
		EmailFrom  string `default:"" env:"EMAIL_FROM"`
	}
	S3 struct {
		Endpoint   string `default:"" env:"S3_ENDPOINT"`
		AccessKey  string `default:"" env:"S3_ACCESS_KEY"`
		SecretKey  string `default:"" env:"S3_SECRET_KEY"`
		UseSSL     *bool  `default:"true" env:"S3_USE_SSL"`
		BucketName string `default:"quicksearch" env:"S3_BUCKET_NAME"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() {
	if Conf != nil {
		return
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	Conf = conf
}
