package anthropic

// CachedSystem builds a single system block with a 5-minute cache breakpoint.
// Every prompt of a run shares the same platform instruction, so the second
// and later calls read it from cache.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: "5m"},
	}}
}
