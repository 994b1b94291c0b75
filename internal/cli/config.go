package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"
	cfgKeyDBFile  = "db_file"
	cfgKeyDebug   = "debug"
	cfgKeyLogFile = "log_file"
	cfgKeyLogSize = "log_max_size"

	envDebug = "LIBRARIAN_DEBUG"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# librarian configuration

# Storage backend; only sqlite is supported.
backend: sqlite

# Database file name inside the data directory.
db_file: library.db

# Data directory (optional; overridden by --data-dir).
# data_dir:

# Debug logging (same as --dbg).
debug: false

# Write logs to a rotating file instead of stderr. A relative path is
# taken from the configuration directory. Size is in megabytes.
# log_file: librarian.log
# log_max_size: 10
`

// load resolves the config directory, reads config.yaml and sets up
// logging for the command about to run.
func (o *rootOptions) load(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(o.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}

	o.resolvedConfigDir = configDir
	o.config = v

	logOut := cmd.ErrOrStderr()
	if name := v.GetString(cfgKeyLogFile); name != "" {
		if !filepath.IsAbs(name) {
			name = filepath.Join(configDir, name)
		}
		lj := &lumberjack.Logger{Filename: name, MaxSize: v.GetInt(cfgKeyLogSize), MaxBackups: 3}
		o.logFile = lj
		logOut = lj
	}
	setupLogs(logOut, o.debug || v.GetBool(cfgKeyDebug))
	log.Printf("[DEBUG] config dir %s", configDir)
	return nil
}

// closeLog releases the rotating log file, if one was opened.
func (o *rootOptions) closeLog() error {
	if o.logFile == nil {
		return nil
	}
	err := o.logFile.Close()
	o.logFile = nil
	return err
}

// libraryConfig builds the backend configuration. The data directory
// follows --data-dir > config.yaml data_dir > LIBRARIAN_DATA_DIR > default.
func (o *rootOptions) libraryConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(o.dataDir, o.config.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend: o.config.GetString(cfgKeyBackend),
		DataDir: dataDir,
		DBFile:  o.config.GetString(cfgKeyDBFile),
	}, nil
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeyDebug, false)
	v.SetDefault(cfgKeyLogSize, 10)
	if err := v.BindEnv(cfgKeyDebug, envDebug); err != nil {
		return nil, fmt.Errorf("bind %s: %w", envDebug, err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile writes defaultConfigYAML unless config.yaml
// already exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
