// Package config loads and watches the loglens configuration file (config.yaml).
//
// Top-level types:
//   - Config{Server, Storage, Redis, Watcher, Scoring, Alerts, Stream} — full
//     config tree parsed from YAML
//   - RedisConfig — addr, password_env, db, channel; Password() resolves the
//     password from the environment
//   - AlertsConfig — threshold_name, cooldown, webhooks []
//   - Webhook — type (slack|http), url_env; URL() resolves from the environment
//
// Load(path) reads the YAML file, applies defaults (port 8080, loglens.db,
// localhost:6379, 5s backoff, 10s scoring timeout, 15m cooldown, 5s stream
// interval), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes, debounces
// the write burst a single save produces, and calls onChange with the newly
// parsed Config, logging which sections changed. It handles the rename→create
// pattern used by atomic-save editors (vim, VS Code) by re-adding the watch
// after each event.
package config
