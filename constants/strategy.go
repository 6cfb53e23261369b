package constants

// Strategy names the method that produced a field mapping.
type Strategy string

const (
	StrategyDirectID        Strategy = "direct_id_match"
	StrategyDirectName      Strategy = "direct_name_match"
	StrategyCaseInsensitive Strategy = "case_insensitive_match"
	StrategyCorrectionHint  Strategy = "correction_hint_match"
	StrategyPattern         Strategy = "pattern_match"
	StrategyStructuredKV    Strategy = "structured_kv_match"
	StrategyLLM             Strategy = "llm_semantic_match"
	StrategySimilarity      Strategy = "similarity_match"
	StrategyGenerated       Strategy = "context_generated"
	StrategyTemporal        Strategy = "temporal_match"
)

// Fixed confidences for the deterministic strategies.
const (
	ConfidenceDirectID        = 1.0
	ConfidenceDirectName      = 0.95
	ConfidenceCaseInsensitive = 0.9
	ConfidenceCorrectionHint  = 0.92
	ConfidenceStructuredKV    = 0.85
	ConfidenceSimilarity      = 0.7
	ConfidenceGenerated       = 0.95
	ConfidenceTemporal        = 0.95
	ConfidenceLLMDefault      = 0.8
	ConfidenceLLMFloor        = 0.5
)
