package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/fw-merge/internal/partition"
	"github.com/oshokin/fw-merge/internal/toolchain"
)

// Config describes the build environment the merge runs in.
type Config struct {
	// BuildDir holds bootloader.bin, partitions.bin, the application binary
	// and the filesystem image.
	BuildDir string `yaml:"build_dir,omitempty" mapstructure:"build_dir"`
	// ProjectDir is the PlatformIO project root.
	ProjectDir string `yaml:"project_dir,omitempty" mapstructure:"project_dir"`
	// ProgramName is the application binary name without the .bin extension.
	ProgramName string `yaml:"program_name,omitempty" mapstructure:"program_name"`
	// Chip is the target identifier (esp32, esp32s2, esp32s3, esp32c3).
	Chip string `yaml:"chip,omitempty" mapstructure:"chip"`
	// Environment is the PlatformIO environment name.
	Environment string `yaml:"environment,omitempty" mapstructure:"environment"`
	// PartitionsFile is the partition table, relative to ProjectDir.
	PartitionsFile string `yaml:"partitions_file,omitempty" mapstructure:"partitions_file"`
	// BootloaderOffset overrides the chip's default bootloader offset.
	BootloaderOffset string `yaml:"bootloader_offset,omitempty" mapstructure:"bootloader_offset"`
	// PartitionsOffset overrides the default partition table offset.
	PartitionsOffset string `yaml:"partitions_offset,omitempty" mapstructure:"partitions_offset"`
	// PythonExe is the interpreter running PlatformIO and esptool.py.
	PythonExe string `yaml:"python_exe,omitempty" mapstructure:"python_exe"`
	// PackagesDir is the PlatformIO packages directory.
	PackagesDir string `yaml:"packages_dir,omitempty" mapstructure:"packages_dir"`
	// Esptool overrides the esptool location derived from PackagesDir.
	Esptool string `yaml:"esptool,omitempty" mapstructure:"esptool"`
	// DataDir is the filesystem source directory, relative to ProjectDir.
	DataDir string `yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	// OutputName is the combined image file name inside BuildDir.
	OutputName string `yaml:"output_name,omitempty" mapstructure:"output_name"`
	// WriteHex also renders the layout as Intel HEX.
	WriteHex bool `yaml:"write_hex" mapstructure:"write_hex"`
	// WriteManifest records the merged layout next to the output.
	WriteManifest bool `yaml:"write_manifest" mapstructure:"write_manifest"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level,omitempty" mapstructure:"log_level"`
}

const (
	// DefaultConfigFilename is the optional settings file in the working directory.
	DefaultConfigFilename = "fw-merge.yaml"

	// DefaultProgramName is PlatformIO's default PROGNAME.
	DefaultProgramName = "firmware"

	// DefaultDataDir is the PlatformIO filesystem source directory.
	DefaultDataDir = "data"

	// DefaultOutputName is the combined image name.
	DefaultOutputName = "firmware-combined.bin"

	// DefaultPythonExe is the interpreter used when none is configured.
	DefaultPythonExe = "python3"

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o644

	// envPrefix prefixes environment overrides, e.g. FWMERGE_BUILD_DIR.
	envPrefix = "FWMERGE"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBuildDirRequired is returned when neither a build dir nor an environment is known.
	errBuildDirRequired = errors.New("build directory or PlatformIO environment must be provided")
	// errEsptoolRequired is returned when esptool cannot be located.
	errEsptoolRequired = errors.New("esptool path or PlatformIO packages directory must be provided")
)

// Load reads the configuration from the optional YAML file at path,
// FWMERGE_* environment variables and the flags registered with
// RegisterFlags, in increasing order of precedence. A missing file is not
// an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := readFile(v, path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults and checks the offsets overrides.
func Validate(cfg *Config) error {
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = "."
	}

	if cfg.BuildDir == "" {
		if cfg.Environment == "" {
			return errBuildDirRequired
		}

		cfg.BuildDir = filepath.Join(cfg.ProjectDir, ".pio", "build", cfg.Environment)
	}

	if cfg.ProgramName == "" {
		cfg.ProgramName = DefaultProgramName
	}

	if cfg.PartitionsFile == "" {
		cfg.PartitionsFile = partition.DefaultFilename
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}

	if cfg.PythonExe == "" {
		cfg.PythonExe = DefaultPythonExe
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.PackagesDir == "" {
		cfg.PackagesDir = defaultPackagesDir()
	}

	if cfg.Esptool == "" {
		cfg.Esptool = toolchain.DefaultEsptoolPath(cfg.PackagesDir)
	}

	if cfg.Esptool == "" {
		return errEsptoolRequired
	}

	var err error

	if cfg.BootloaderOffset, err = normalizeOffset("bootloader offset", cfg.BootloaderOffset); err != nil {
		return err
	}

	if cfg.PartitionsOffset, err = normalizeOffset("partitions offset", cfg.PartitionsOffset); err != nil {
		return err
	}

	return nil
}

// SourceDir returns the filesystem source directory.
func (c *Config) SourceDir() string {
	return resolve(c.ProjectDir, c.DataDir)
}

// PartitionsPath returns the partition table document.
func (c *Config) PartitionsPath() string {
	return resolve(c.ProjectDir, c.PartitionsFile)
}

// OutputPath returns the combined image.
func (c *Config) OutputPath() string {
	return resolve(c.BuildDir, c.OutputName)
}

// resolve joins a relative name to base and keeps absolute names.
func resolve(base, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}

	return filepath.Join(base, name)
}

// normalizeOffset validates an optional offset override.
func normalizeOffset(what, value string) (string, error) {
	offset, ok, err := partition.ParseOffset(value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", what, err)
	}

	if !ok {
		return "", nil
	}

	return offset.Hex, nil
}

// defaultPackagesDir returns ~/.platformio/packages, or "" without a home directory.
func defaultPackagesDir() string {
	if dir := os.Getenv("PLATFORMIO_CORE_DIR"); dir != "" {
		return filepath.Join(dir, "packages")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".platformio", "packages")
}

// readFile merges the YAML file into v when it exists.
func readFile(v *viper.Viper, path string) error {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("stat settings: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	return nil
}
