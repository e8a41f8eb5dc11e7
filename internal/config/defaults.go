package config

import "runtime"

// Conventional relative paths inside the working directory.
const (
	DefaultManifest    = "requirements.txt"
	DefaultSpec        = "EPUB_Combiner.spec"
	DefaultOutputDir   = "dist"
	DefaultHistoryPath = ".epubbuild/history.db"
	DefaultAppName     = "EPUB Combiner"
)

// executableExt returns the extension the packager gives standalone binaries
// on the build host.
func executableExt() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Default returns the conventional configuration.
func Default() *Config {
	ext := executableExt()
	return &Config{
		WorkDir:  ".",
		Manifest: DefaultManifest,
		Provision: ProvisionConfig{
			Command: []string{"python", "-m", "pip", "install", "-r", "{manifest}"},
		},
		Package: PackageConfig{
			Command: []string{"pyinstaller", "--noconfirm", "--distpath", "{output}", "{spec}"},
			Spec:    DefaultSpec,
		},
		Output:   OutputConfig{Directory: DefaultOutputDir},
		Artifact: ArtifactConfig{Pattern: "*" + ext, Name: DefaultAppName + ext},
		Logging:  LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		History:  HistoryConfig{Path: DefaultHistoryPath},
	}
}
