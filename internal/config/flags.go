package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names shared by every command.
const (
	FlagBuildDir         = "build-dir"
	FlagProjectDir       = "project-dir"
	FlagProgramName      = "program"
	FlagChip             = "chip"
	FlagEnvironment      = "environment"
	FlagPartitionsFile   = "partitions"
	FlagBootloaderOffset = "bootloader-offset"
	FlagPartitionsOffset = "partitions-offset"
	FlagPythonExe        = "python"
	FlagPackagesDir      = "packages-dir"
	FlagEsptool          = "esptool"
	FlagDataDir          = "data-dir"
	FlagOutputName       = "output"
	FlagWriteHex         = "hex"
	FlagWriteManifest    = "manifest"
	FlagLogLevel         = "log-level"
)

// flagKeys maps flag names to configuration keys.
//
//nolint:gochecknoglobals // Static lookup table.
var flagKeys = map[string]string{
	FlagBuildDir:         "build_dir",
	FlagProjectDir:       "project_dir",
	FlagProgramName:      "program_name",
	FlagChip:             "chip",
	FlagEnvironment:      "environment",
	FlagPartitionsFile:   "partitions_file",
	FlagBootloaderOffset: "bootloader_offset",
	FlagPartitionsOffset: "partitions_offset",
	FlagPythonExe:        "python_exe",
	FlagPackagesDir:      "packages_dir",
	FlagEsptool:          "esptool",
	FlagDataDir:          "data_dir",
	FlagOutputName:       "output_name",
	FlagWriteHex:         "write_hex",
	FlagWriteManifest:    "write_manifest",
	FlagLogLevel:         "log_level",
}

// RegisterFlags adds the configuration flags to the flag set.
// String flags default to empty so file and environment values are not masked.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagBuildDir, "", "build output directory (default .pio/build/<environment>)")
	flags.String(FlagProjectDir, "", "PlatformIO project directory (default .)")
	flags.String(FlagProgramName, "", "application binary name without .bin (default firmware)")
	flags.String(FlagChip, "", "target chip: esp32, esp32s2, esp32s3, esp32c3")
	flags.StringP(FlagEnvironment, "e", "", "PlatformIO environment")
	flags.String(FlagPartitionsFile, "", "partition table, relative to the project (default partitions.csv)")
	flags.String(FlagBootloaderOffset, "", "bootloader load offset (default depends on chip)")
	flags.String(FlagPartitionsOffset, "", "partition table load offset (default 0x8000)")
	flags.String(FlagPythonExe, "", "python interpreter running PlatformIO and esptool (default python3)")
	flags.String(FlagPackagesDir, "", "PlatformIO packages directory (default ~/.platformio/packages)")
	flags.String(FlagEsptool, "", "esptool.py or esptool executable (default <packages>/tool-esptoolpy/esptool.py)")
	flags.String(FlagDataDir, "", "filesystem source directory, relative to the project (default data)")
	flags.StringP(FlagOutputName, "o", "", "combined image name inside the build directory (default firmware-combined.bin)")
	flags.Bool(FlagWriteHex, false, "also write the layout as Intel HEX")
	flags.Bool(FlagWriteManifest, true, "write a YAML manifest next to the combined image")
	flags.String(FlagLogLevel, "", "log level: debug, info, warn, error (default info)")
}

// setDefaults registers every key so environment variables are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	for _, key := range flagKeys {
		v.SetDefault(key, "")
	}

	v.SetDefault("write_hex", false)
	v.SetDefault("write_manifest", true)
}

// bindFlags connects registered flags to their configuration keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}
