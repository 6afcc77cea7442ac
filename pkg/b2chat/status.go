package b2chat

import (
	"strings"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// statusAliases maps legacy upstream status names to their canonical values.
var statusAliases = map[string]models.ChatStatus{
	"OPEN":     models.StatusPickedUp,
	"PENDING":  models.StatusOpened,
	"FINISHED": models.StatusClosed,
}

// NormalizeStatus maps an upstream status string to its canonical value.
// Case, surrounding space and space-vs-underscore differences are ignored,
// and legacy aliases are translated. The second return is false when the
// value was unknown and the fallback OPENED was applied; normalizing an
// already canonical value is a no-op.
func NormalizeStatus(raw string) (models.ChatStatus, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")

	if status := models.ChatStatus(cleaned); status.IsValid() {
		return status, true
	}
	if status, ok := statusAliases[cleaned]; ok {
		return status, true
	}
	return models.StatusOpened, false
}

// NormalizeProvider maps an upstream provider string to a known channel,
// falling back to livechat for anything unrecognized.
func NormalizeProvider(raw string) models.Provider {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if provider := models.Provider(cleaned); provider.IsValid() {
		return provider
	}
	return models.ProviderLiveChat
}
