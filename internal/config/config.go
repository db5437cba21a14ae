package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zimage-studio/zimage-server/internal/templates"
	"github.com/zimage-studio/zimage-server/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const envPrefix = "ZIMAGE"

// Config is the immutable process configuration, resolved once at startup
// from flags, environment and config.yaml. The runtime-mutable generation
// settings live in the settings package instead.
type Config struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	Environment   string        `mapstructure:"environment"`
	ZImageHome    string        `mapstructure:"zimage_home"`
	AssetsDir     string        `mapstructure:"assets_dir"`
	ModelsDir     string        `mapstructure:"models_dir"`
	PublicDir     string        `mapstructure:"public_dir"`
	WorkerAddr    string        `mapstructure:"worker_addr"`
	WorkerTimeout int           `mapstructure:"worker_timeout"`
	Filesystem    string        `mapstructure:"filesystem_type"`
	S3            *S3Config     `mapstructure:"s3"`
	Pulsar        *PulsarConfig `mapstructure:"pulsar"`
	OpenAI        *OpenAIConfig `mapstructure:"openai"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicUrl   string `mapstructure:"public_url"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type PulsarConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

var config *Config

// LoadEnvAndConfigFiles resolves the home directory, materializes default
// .env and config.yaml files on first run, and loads everything into viper.
func LoadEnvAndConfigFiles() error {
	zimageHome, err := getZImageHome()
	if err != nil {
		return err
	}

	if err := createHomeDirs(zimageHome); err != nil {
		return err
	}

	assetsDir, modelsDir := subdirOrOverride(zimageHome, "assets_dir", "assets"), subdirOrOverride(zimageHome, "models_dir", "models")

	viper.Set("zimage_home", zimageHome)
	viper.Set("assets_dir", assetsDir)
	viper.Set("models_dir", modelsDir)

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(zimageHome, ".env")
	}

	configFile := viper.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(zimageHome, "config.yaml")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		if err := templates.WriteEnv(envFile); err != nil {
			return fmt.Errorf("failed to create .env file: %w", err)
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := templates.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to create config.yaml file: %w", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	viper.AutomaticEnv()
	viper.SetConfigFile(configFile)

	if err := loadConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			fmt.Println("No config file found. Using default config.")
		} else {
			return err
		}
	}

	return nil
}

func loadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	return nil
}

func GetConfig() *Config {
	return config
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

// Returns the zimage home directory, trying in order: the zimage_home viper
// key (flag), the ZIMAGE_HOME environment variable, the default.
func getZImageHome() (string, error) {
	home := viper.GetString("zimage_home")
	if home == "" {
		home = os.Getenv("ZIMAGE_HOME")
		if home == "" {
			home = DefaultZImageHome
		}
	}

	home, err := pathutil.ExpandPath(home)
	if err != nil {
		return "", ErrHomeExpandFailed
	}

	return home, nil
}

func subdirOrOverride(home, key, subdir string) string {
	dir := viper.GetString(key)
	if dir == "" {
		dir = filepath.Join(home, subdir)
	}

	if expanded, err := pathutil.ExpandPath(dir); err == nil {
		dir = expanded
	}

	return dir
}

func createHomeDirs(home string) error {
	subdirs := []string{"assets", "models"}
	if err := os.MkdirAll(home, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create zimage home directory: %w", err)
	}

	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(home, subdir), os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return nil
}
