// Package config handles tool configuration and LOD request parsing.
package config

// Config holds all tool settings.
type Config struct {
	Engine   EngineConfig  `yaml:"engine"`
	Defaults LODDefaults   `yaml:"defaults"`
	Split    SplitConfig   `yaml:"split"`
	Output   OutputConfig  `yaml:"output"`
	Logging  LoggingConfig `yaml:"logging"`
}

// EngineConfig holds external simplification engine settings.
type EngineConfig struct {
	Path string `yaml:"path"` // Engine binary, resolved via PATH when bare
	Jobs int    `yaml:"jobs"` // Max concurrent engine invocations
}

// LODDefaults holds values applied to LOD request fields left unset.
type LODDefaults struct {
	TextureSize    string `yaml:"texture_size"` // "keep", "50%" or "WxH"
	EmbedTextures  bool   `yaml:"embed_textures"`
	KeepHierarchy  bool   `yaml:"keep_hierarchy"`
	MergeMaterials bool   `yaml:"merge_materials"`
	Aggressive     bool   `yaml:"aggressive"`
	Compression    string `yaml:"texture_compression"` // disabled|uastc|etc1s
}

// SplitConfig holds depth-splitting settings.
type SplitConfig struct {
	Depth         int  `yaml:"depth"`
	ResetPosition bool `yaml:"reset_position"`
	ResetRotation bool `yaml:"reset_rotation"`
	ResetScale    bool `yaml:"reset_scale"`
	InstanceGroup bool `yaml:"instance_group"`
}

// OutputConfig holds output directory behaviour.
type OutputConfig struct {
	Force bool `yaml:"force"` // Overwrite existing output files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Path: "gltfpack",
			Jobs: 1,
		},
		Defaults: LODDefaults{
			TextureSize:    "keep",
			EmbedTextures:  false,
			KeepHierarchy:  false,
			MergeMaterials: true,
			Aggressive:     false,
			Compression:    string(CompressionDisabled),
		},
		Split: SplitConfig{
			Depth: 0,
		},
		Output: OutputConfig{
			Force: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
