// Package settings manages the signed-in user's notification settings.
//
// Changes are applied optimistically through a mutation.Coordinator under
// the key "notification-settings": the new value is visible at once and is
// rolled back exactly if the server rejects it. Confirmed settings are
// written through to the query cache.
package settings
