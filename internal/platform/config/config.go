package config

// Config is the root configuration of the analysis server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Web           WebConfig           `yaml:"web"`
	Decode        DecodeConfig        `yaml:"decode"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Store         StoreConfig         `yaml:"store"`
	Events        EventsConfig        `yaml:"events"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	IP              string `yaml:"ip"`
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled     bool     `yaml:"enabled"`
	StaticDir   string   `yaml:"static_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DecodeConfig bounds what the image loader is willing to read and decode.
type DecodeConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
	Timeout        string   `yaml:"timeout"`
}

type AnalysisConfig struct {
	// MaxConcurrency caps how many files of one batch are analysed at once.
	MaxConcurrency int `yaml:"max_concurrency"`
	// Seed pins the random source of every analysis. Zero means a fresh
	// time-based seed per call.
	Seed       int64           `yaml:"seed"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig collects the tuning knobs of the pixel heuristics. The
// defaults are the values the downstream rules were tuned against.
type ThresholdConfig struct {
	Pixel    PixelThresholds    `yaml:"pixel"`
	Validity ValidityThresholds `yaml:"validity"`
	Modality ModalityThresholds `yaml:"modality"`
	Report   ReportThresholds   `yaml:"report"`
}

type PixelThresholds struct {
	// DarkBelow: a pixel whose mean RGB is below this counts as dark (50).
	DarkBelow float64 `yaml:"dark_below"`
	// BrightAbove: a pixel whose mean RGB is above this counts as bright (200).
	BrightAbove float64 `yaml:"bright_above"`
	// GrayscaleSampleSize: pixels inspected for the grayscale test (1000).
	GrayscaleSampleSize int `yaml:"grayscale_sample_size"`
	// GrayscaleMaxVariance: mean |R-G|+|G-B|+|R-B| below this is grayscale (30).
	GrayscaleMaxVariance float64 `yaml:"grayscale_max_variance"`
	// HighContrast: contrast above this marks high contrast (0.3).
	HighContrast float64 `yaml:"high_contrast"`
	// DicomMaxBrightness: DICOM-like images are darker than this (150).
	DicomMaxBrightness float64 `yaml:"dicom_max_brightness"`
}

type ValidityThresholds struct {
	// Extensions accepted as scan uploads, matched as case-insensitive suffixes.
	Extensions []string `yaml:"extensions"`
	// MinContrast: contrast must exceed this (0.2).
	MinContrast float64 `yaml:"min_contrast"`
	// MaxBrightness: average brightness must stay below this (180).
	MaxBrightness float64 `yaml:"max_brightness"`
	// MinFileSize: uploads must be larger than this many bytes (10000).
	MinFileSize int64 `yaml:"min_file_size"`
}

// ModalityThresholds drive the scan type fallback used when the file name
// carries no hint.
type ModalityThresholds struct {
	XRayMinContrast  float64 `yaml:"xray_min_contrast"`  // 0.4
	MRIMaxBrightness float64 `yaml:"mri_max_brightness"` // 100
	MRIMinContrast   float64 `yaml:"mri_min_contrast"`   // 0.3
	CTMinBrightness  float64 `yaml:"ct_min_brightness"`  // 100
	CTMinContrast    float64 `yaml:"ct_min_contrast"`    // 0.35
}

type ReportThresholds struct {
	BaseConfidence int `yaml:"base_confidence"` // 70
	MinConfidence  int `yaml:"min_confidence"`  // 60
	MaxConfidence  int `yaml:"max_confidence"`  // 98
	// AbnormalityCutoff: abnormal findings are added when the score exceeds it (0.4).
	AbnormalityCutoff float64 `yaml:"abnormality_cutoff"`
	// SecondFindingChance: probability of drawing a second abnormal finding (0.3).
	SecondFindingChance float64 `yaml:"second_finding_chance"`
	SeverityModerate    float64 `yaml:"severity_moderate"` // 0.7
	SeverityMild        float64 `yaml:"severity_mild"`     // 0.4
}

type StoreConfig struct {
	Driver  string      `yaml:"driver"`
	TTL     string      `yaml:"ttl"`
	Cleanup string      `yaml:"cleanup"`
	SQLite  SQLiteStore `yaml:"sqlite,omitempty"`
	Redis   RedisStore  `yaml:"redis,omitempty"`
	// AuditEvents records every lifecycle event in the sqlite database at
	// SQLite.DSN, whatever the result driver.
	AuditEvents bool `yaml:"audit_events"`
}

type EventsConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type SQLiteStore struct {
	DSN string `yaml:"dsn,omitempty"`
}

type RedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
	Metrics bool `yaml:"metrics"`
}
