package config

// BuildVersion is set at build time
var BuildVersion = "development"

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Authority struct {
		Mnemonic     string `env:"AUTHORITY_MNEMONIC"     flag:"authority-mnemonic"      validate:"required_without=PrivateKey" desc:"BIP39 mnemonic of the platform authority wallet"`
		AccountIndex int    `env:"AUTHORITY_ACCOUNT_INDEX" flag:"authority-account-index" validate:"omitempty,number"`
		Address      string `env:"AUTHORITY_ADDRESS"      flag:"authority-address"       validate:"omitempty,eth_addr" desc:"authority address, required with private key"`
		PrivateKey   string `env:"AUTHORITY_PRIVATE_KEY"  flag:"authority-private-key"   validate:"required_without=Mnemonic"`
	}
	DB struct {
		Path string `env:"DB_PATH" flag:"db-path" desc:"filepath for the SQLite settlement database"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Events      struct {
		FeedSize int `env:"EVENTS_FEED_SIZE" flag:"events-feed-size" validate:"omitempty,number" desc:"number of recent settlement events kept in the in-memory feed"`
	}
	Log struct {
		Color      bool   `env:"LOG_COLOR"       flag:"log-color"`
		FolderPath string `env:"LOG_FOLDER_PATH" flag:"log-folder-path" validate:"omitempty,dirpath" desc:"enables file logging and sets the folder path"`
		IsProd     bool   `env:"LOG_IS_PROD"     flag:"log-is-prod"     desc:"affects the format of the log output"`
		JSON       bool   `env:"LOG_JSON"        flag:"log-json"`
		LevelApp   string `env:"LOG_LEVEL_APP"   flag:"log-level-app"   validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelHTTP  string `env:"LOG_LEVEL_HTTP"  flag:"log-level-http"  validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the settlement node, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// DB
	if cfg.DB.Path == "" {
		cfg.DB.Path = "settlement.db"
	}

	// Events
	if cfg.Events.FeedSize == 0 {
		cfg.Events.FeedSize = 128
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelHTTP == "" {
		cfg.Log.LevelHTTP = "info"
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://localhost:8080"
	}
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Authority.AccountIndex = cfg.Authority.AccountIndex
	publicCfg.Authority.Address = cfg.Authority.Address

	publicCfg.DB.Path = cfg.DB.Path

	publicCfg.Environment = cfg.Environment

	publicCfg.Events.FeedSize = cfg.Events.FeedSize

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FolderPath = cfg.Log.FolderPath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelHTTP = cfg.Log.LevelHTTP

	publicCfg.Web.Address = cfg.Web.Address
	publicCfg.Web.PublicUrl = cfg.Web.PublicUrl

	return publicCfg
}
