package config

// DefaultConfig returns the configuration used when no file overrides a field.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:     true,
			StaticDir:   "./web",
			CORSOrigins: []string{"*"},
		},
		Decode: DecodeConfig{
			MaxFileSize:    20 * 1024 * 1024,
			MaxPixels:      64 * 1024 * 1024,
			MaxWidth:       16384,
			MaxHeight:      16384,
			AllowedFormats: []string{"png", "jpeg", "gif", "webp", "bmp", "tiff"},
			Timeout:        "10s",
		},
		Analysis: AnalysisConfig{
			MaxConcurrency: 4,
			Thresholds:     DefaultThresholds(),
		},
		Store: StoreConfig{
			Driver:  "memory",
			TTL:     "24h",
			Cleanup: "5m",
			SQLite: SQLiteStore{
				DSN: "data/medscan.db",
			},
			Redis: RedisStore{
				Addr:   "127.0.0.1:6379",
				Prefix: "medscan:analysis:",
			},
			AuditEvents: true,
		},
		Events: EventsConfig{
			Workers:   4,
			QueueSize: 1024,
		},
		Observability: ObservabilityConfig{
			Enabled: false,
			Metrics: true,
		},
	}
}

// DefaultThresholds returns the heuristic cutoffs the classifier was tuned with.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		Pixel: PixelThresholds{
			DarkBelow:            50,
			BrightAbove:          200,
			GrayscaleSampleSize:  1000,
			GrayscaleMaxVariance: 30,
			HighContrast:         0.3,
			DicomMaxBrightness:   150,
		},
		Validity: ValidityThresholds{
			Extensions:    []string{".dcm", ".dicom", ".jpg", ".jpeg", ".png"},
			MinContrast:   0.2,
			MaxBrightness: 180,
			MinFileSize:   10000,
		},
		Modality: ModalityThresholds{
			XRayMinContrast:  0.4,
			MRIMaxBrightness: 100,
			MRIMinContrast:   0.3,
			CTMinBrightness:  100,
			CTMinContrast:    0.35,
		},
		Report: ReportThresholds{
			BaseConfidence:      70,
			MinConfidence:       60,
			MaxConfidence:       98,
			AbnormalityCutoff:   0.4,
			SecondFindingChance: 0.3,
			SeverityModerate:    0.7,
			SeverityMild:        0.4,
		},
	}
}
