package progressmetrics

// Config is the "progressmetrics" config section.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace" toml:"namespace" json:"namespace" env:"NAMESPACE" default:"stepper"`

	// ExcludeEntities leaves per-entity trackers out of the exported series.
	ExcludeEntities bool `yaml:"excludeEntities" toml:"excludeEntities" json:"excludeEntities" env:"EXCLUDE_ENTITIES"`
}
