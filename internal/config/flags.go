package config

import "flag"

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile       = flag.String("log-file", "", "Write logs to this file")
	flagEngine        = flag.String("engine", "", "Path to the simplification engine binary")
	flagJobs          = flag.Int("jobs", 0, "Max concurrent engine invocations")
	flagForce         = flag.Bool("force", false, "Overwrite existing output files")
	flagTextureSize   = flag.String("texture-size", "", "Default texture size (keep, N%, W or WxH)")
	flagEmbed         = flag.Bool("embed-textures", false, "Embed textures in output documents by default")
	flagKeepHierarchy = flag.Bool("keep-hierarchy", false, "Keep the scene hierarchy during simplification")
	flagNoMerge       = flag.Bool("no-material-merging", false, "Do not merge materials during simplification")
	flagAggressive    = flag.Bool("aggressive", false, "Simplify aggressively, ignoring quality limits")
	flagCompression   = flag.String("texture-compression", "", "Texture compression mode (disabled, uastc, etc1s)")
	flagSplitDepth    = flag.Int("split-depth", 0, "Split the scene into parts at this node depth")
	flagResetPos      = flag.Bool("reset-position", false, "Reset part root positions")
	flagResetRot      = flag.Bool("reset-rotation", false, "Reset part root rotations")
	flagResetScale    = flag.Bool("reset-scale", false, "Reset part root scales")
	flagInstanceGroup = flag.Bool("instance-group", false, "Write an instance-group file for split parts")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagEngine != "" {
		cfg.Engine.Path = *flagEngine
	}
	if *flagJobs > 0 {
		cfg.Engine.Jobs = *flagJobs
	}
	if *flagForce {
		cfg.Output.Force = true
	}
	if *flagTextureSize != "" {
		cfg.Defaults.TextureSize = *flagTextureSize
	}
	if *flagEmbed {
		cfg.Defaults.EmbedTextures = true
	}
	if *flagKeepHierarchy {
		cfg.Defaults.KeepHierarchy = true
	}
	if *flagNoMerge {
		cfg.Defaults.MergeMaterials = false
	}
	if *flagAggressive {
		cfg.Defaults.Aggressive = true
	}
	if *flagCompression != "" {
		cfg.Defaults.Compression = *flagCompression
	}
	if *flagSplitDepth > 0 {
		cfg.Split.Depth = *flagSplitDepth
	}
	if *flagResetPos {
		cfg.Split.ResetPosition = true
	}
	if *flagResetRot {
		cfg.Split.ResetRotation = true
	}
	if *flagResetScale {
		cfg.Split.ResetScale = true
	}
	if *flagInstanceGroup {
		cfg.Split.InstanceGroup = true
	}
}
