package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"imagelite/internal/cache"
	"imagelite/internal/logging"
	"imagelite/internal/memory"
	"imagelite/internal/session"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Environment variables read by LoadConfig.
const (
	EnvCacheDir     = "IMAGELITE_CACHE_DIR"
	EnvCacheCreate  = "IMAGELITE_CACHE_CREATE"
	EnvCacheURI     = "IMAGELITE_CACHE_URI"
	EnvDocumentRoot = "IMAGELITE_DOCUMENT_ROOT"
	EnvLifetime     = "IMAGELITE_LIFETIME"
	EnvMode         = "IMAGELITE_MODE"
	EnvCodec        = "IMAGELITE_CODEC"
	EnvManifest     = "IMAGELITE_MANIFEST"
	EnvMetricsFile  = "IMAGELITE_METRICS_FILE"
	EnvMemoryBudget = memory.EnvBudget
	EnvLogLevel     = "LOG_LEVEL"
)

// DefaultMode is the permission mode for created cache directories.
const DefaultMode os.FileMode = 0o755

// Settings are the raw configuration values, as read from the environment
// or from command-line flags.
type Settings struct {
	CacheDir     string
	CacheCreate  bool
	CacheURI     string
	DocumentRoot string
	Lifetime     string
	Mode         string
	Codec        string
	Manifest     string
	MetricsFile  string
	MemoryBudget string
}

// SettingsFromEnv reads Settings from the environment.
func SettingsFromEnv() Settings {
	return Settings{
		CacheDir:     getEnv(EnvCacheDir, ""),
		CacheCreate:  getEnvBool(EnvCacheCreate, false),
		CacheURI:     getEnv(EnvCacheURI, ""),
		DocumentRoot: getEnv(EnvDocumentRoot, ""),
		Lifetime:     getEnv(EnvLifetime, ""),
		Mode:         getEnv(EnvMode, ""),
		Codec:        getEnv(EnvCodec, "imaging"),
		Manifest:     getEnv(EnvManifest, ""),
		MetricsFile:  getEnv(EnvMetricsFile, ""),
		MemoryBudget: getEnv(EnvMemoryBudget, ""),
	}
}

// Config holds validated application configuration
type Config struct {
	CacheDir     string
	CacheCreate  bool
	CacheURI     string
	DocumentRoot string
	Lifetime     cache.Lifetime
	Mode         os.FileMode
	Codec        string
	ManifestPath string
	MetricsFile  string
	Budget       memory.Budget
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	return NewConfig(SettingsFromEnv())
}

// NewConfig validates s. Paths are made absolute; the cache directory
// itself is checked when the engine opens it.
func NewConfig(s Settings) (*Config, error) {
	cfg := &Config{
		CacheCreate: s.CacheCreate,
		CacheURI:    strings.TrimSpace(s.CacheURI),
		MetricsFile: s.MetricsFile,
		Mode:        DefaultMode,
	}

	var err error
	if cfg.CacheDir, err = absOrEmpty(s.CacheDir); err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if cfg.DocumentRoot, err = absOrEmpty(s.DocumentRoot); err != nil {
		return nil, fmt.Errorf("failed to resolve document root: %w", err)
	}
	if cfg.ManifestPath, err = absOrEmpty(s.Manifest); err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	if cfg.Lifetime, err = cache.ParseLifetime(s.Lifetime); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvLifetime, err)
	}
	if s.Mode != "" {
		if cfg.Mode, err = ParseMode(s.Mode); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMode, err)
		}
	}

	switch codec := strings.ToLower(strings.TrimSpace(s.Codec)); codec {
	case "", "imaging":
		cfg.Codec = "imaging"
	case "vips", "libvips":
		cfg.Codec = "vips"
	default:
		return nil, fmt.Errorf("%s: unknown codec %q (want imaging or vips)", EnvCodec, s.Codec)
	}

	if s.MemoryBudget != "" {
		n, err := memory.ParseBudget(s.MemoryBudget)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMemoryBudget, err)
		}
		cfg.Budget = memory.Budget{Bytes: n, Source: EnvMemoryBudget}
	} else {
		cfg.Budget = memory.BudgetFromEnv()
	}

	if cfg.ManifestPath != "" {
		if err := testWriteAccess(filepath.Dir(cfg.ManifestPath)); err != nil {
			return nil, fmt.Errorf("manifest directory is not writable: %w", err)
		}
	}

	return cfg, nil
}

// EngineConfig converts the configuration for session.NewEngine.
func (c *Config) EngineConfig() session.Config {
	return session.Config{
		CacheRoot:       c.CacheDir,
		CreateCacheRoot: c.CacheCreate,
		URIPrefix:       c.CacheURI,
		DocumentRoot:    c.DocumentRoot,
		Lifetime:        c.Lifetime,
		DirMode:         c.Mode,
		Budget:          c.Budget.Bytes,
		Codec:           c.Codec,
	}
}

// LogConfig logs the configuration at debug level.
func LogConfig(c *Config) {
	if !logging.IsDebugEnabled() {
		return
	}
	info := GetBuildInfo()
	logging.Debug("imagelite %s (%s, built %s, %s %s/%s)", info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
	logging.Debug("  GOMAXPROCS:      %d (of %d CPUs)", runtime.GOMAXPROCS(0), runtime.NumCPU())
	logging.Debug("  %-24s %s", EnvCacheDir+":", orNone(c.CacheDir))
	logging.Debug("  %-24s %v", EnvCacheCreate+":", c.CacheCreate)
	logging.Debug("  %-24s %s", EnvCacheURI+":", orNone(c.CacheURI))
	logging.Debug("  %-24s %s", EnvDocumentRoot+":", orNone(c.DocumentRoot))
	logging.Debug("  %-24s %s", EnvLifetime+":", c.Lifetime)
	logging.Debug("  %-24s %04o", EnvMode+":", c.Mode)
	logging.Debug("  %-24s %s", EnvCodec+":", c.Codec)
	logging.Debug("  %-24s %s", EnvManifest+":", orNone(c.ManifestPath))
	logging.Debug("  %-24s %s", EnvMetricsFile+":", orNone(c.MetricsFile))
	logging.Debug("  %-24s %s (%s)", EnvMemoryBudget+":", c.Budget, c.Budget.Source)
	logging.Debug("  %-24s %s", EnvLogLevel+":", logging.GetLevel())
}

// ParseMode parses an octal permission mode such as "0755" or "750".
func ParseMode(s string) (os.FileMode, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0o")
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q", s)
	}
	if n == 0 || n > 0o777 {
		return 0, fmt.Errorf("mode %q out of range", s)
	}
	return os.FileMode(n), nil
}

// Helper functions

func absOrEmpty(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	return filepath.Abs(path)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
