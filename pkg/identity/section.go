package identity

// Section is a logical area of the virtual namespace with its own ratio
// and free-leech policy.
type Section struct {
	Name               string  `yaml:"name" mapstructure:"name"`
	VirtualRoot        string  `yaml:"virtual_root" mapstructure:"virtual_root"`
	UploadMultiplier   float64 `yaml:"upload_multiplier" mapstructure:"upload_multiplier"`
	DownloadMultiplier float64 `yaml:"download_multiplier" mapstructure:"download_multiplier"`
	FreeLeech          bool    `yaml:"free_leech" mapstructure:"free_leech"`
	// ZeroDay marks a section as eligible for the /0DAY virtual listing:
	// releases first seen today in a zero-day section, as opposed to
	// /TODAY which spans every section.
	ZeroDay bool `yaml:"zero_day" mapstructure:"zero_day"`
}
