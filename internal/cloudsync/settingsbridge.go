package cloudsync

import (
	"encoding/json"

	"github.com/yomiyougu/core/internal/settings"
)

// rawSettingsValues flattens a settings document into the key→value map
// the merge engine compares against a remote snapshot's app_settings.
func rawSettingsValues(doc *settings.Document) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for _, cat := range doc.Categories {
		for _, item := range cat.Items {
			out[item.Key] = item.Widget.Value
		}
	}
	return out
}

// applySettingsValues writes merge-resolved values back onto the local
// document in place. A key with no matching item (e.g. one introduced by
// a newer peer) is left unapplied; it still round-trips through the
// snapshot's own app_settings map.
func applySettingsValues(doc *settings.Document, values map[string]json.RawMessage) {
	for key, value := range values {
		doc.Set(key, value)
	}
}
