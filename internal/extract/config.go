// Package extract turns inbound messages into order records: it detects
// requests to repeat a previous order, extracts the order fields with a
// completion service and back-fills gaps from the client's history.
package extract

// Defaults for the extraction pipeline.
const (
	DefaultModel = "claude-haiku-4-5"
	// DefaultReorderContextChars bounds the content sent to the classifier.
	DefaultReorderContextChars = 1500
	// DefaultExtractContextChars bounds the content sent to the extractor.
	DefaultExtractContextChars = 12000
	// DefaultConfidenceFloor is the minimum confidence of a record that
	// received any field from history.
	DefaultConfidenceFloor     = 85
	DefaultClassifierMaxTokens = 300
	DefaultExtractorMaxTokens  = 2000
	DefaultTemperature         = 0.1
)

// Config tunes the classifier, the extractor and the history fill.
type Config struct {
	ClassifierModel     string
	ExtractorModel      string
	ClassifierMaxTokens int
	ExtractorMaxTokens  int
	// Temperature is nil for DefaultTemperature; 0 is a valid setting.
	Temperature         *float64
	ReorderContextChars int
	ExtractContextChars int
	ConfidenceFloor     int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.ClassifierModel == "" {
		c.ClassifierModel = DefaultModel
	}
	if c.ExtractorModel == "" {
		c.ExtractorModel = DefaultModel
	}
	if c.ClassifierMaxTokens <= 0 {
		c.ClassifierMaxTokens = DefaultClassifierMaxTokens
	}
	if c.ExtractorMaxTokens <= 0 {
		c.ExtractorMaxTokens = DefaultExtractorMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.ReorderContextChars <= 0 {
		c.ReorderContextChars = DefaultReorderContextChars
	}
	if c.ExtractContextChars <= 0 {
		c.ExtractContextChars = DefaultExtractContextChars
	}
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = DefaultConfidenceFloor
	}
	return c
}
