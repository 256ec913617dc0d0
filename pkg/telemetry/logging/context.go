package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// TickIDKey is the context key for evaluation tick identifiers.
	TickIDKey contextKey = "tick_id"

	// TickIndexKey is the context key for evaluation tick indices.
	TickIndexKey contextKey = "tick_index"

	// AssetKeyKey is the context key for asset keys.
	AssetKeyKey contextKey = "asset_key"
)

// WithTickID adds a tick ID to the context.
func WithTickID(ctx context.Context, tickID string) context.Context {
	return context.WithValue(ctx, TickIDKey, tickID)
}

// GetTickID retrieves the tick ID from the context.
func GetTickID(ctx context.Context) string {
	if tickID, ok := ctx.Value(TickIDKey).(string); ok {
		return tickID
	}
	return ""
}

// WithTickIndex adds a tick index to the context.
func WithTickIndex(ctx context.Context, index uint64) context.Context {
	return context.WithValue(ctx, TickIndexKey, index)
}

// GetTickIndex retrieves the tick index from the context. The second return
// value reports whether an index was set.
func GetTickIndex(ctx context.Context) (uint64, bool) {
	index, ok := ctx.Value(TickIndexKey).(uint64)
	return index, ok
}

// WithAssetKey adds an asset key to the context.
func WithAssetKey(ctx context.Context, assetKey string) context.Context {
	return context.WithValue(ctx, AssetKeyKey, assetKey)
}

// GetAssetKey retrieves the asset key from the context.
func GetAssetKey(ctx context.Context) string {
	if assetKey, ok := ctx.Value(AssetKeyKey).(string); ok {
		return assetKey
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if tickID := GetTickID(ctx); tickID != "" {
		fields = append(fields, "tick_id", tickID)
	}
	if index, ok := GetTickIndex(ctx); ok {
		fields = append(fields, "tick_index", index)
	}
	if assetKey := GetAssetKey(ctx); assetKey != "" {
		fields = append(fields, "asset_key", assetKey)
	}

	return fields
}
