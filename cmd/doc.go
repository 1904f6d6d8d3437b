// Package cmd defines the CLI commands for the keywatch executable.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and monitor control endpoints. A start request
//     is turned into a watch.Config and handed to the monitor controller, which owns at most one worker.
//   - Watch loop: each pass resolves keywords (ranking, trend or manual), fetches the target listing through
//     the Colly-based fetcher, matches unseen titles and sends Telegram notifications for hits. Passes are
//     separated by a base interval plus random jitter; a failed fetch waits out the recovery delay instead.
//   - Fetch pipeline: the static fetch may be promoted to a headless Chromedp render when the heuristic
//     detector deems the page script-driven.
//   - Fanout & monitoring: lifecycle events go through the progress Hub. zap, the recent-line ring served
//     at /v1/monitor/logs and the Postgres hit history receive every event; Prometheus collectors and the
//     Pub/Sub hit publisher (only when a topic is configured) may drop events under backpressure.
//   - Configuration & plumbing: Viper populates config from env/files with the KEYWATCH_ prefix; zap provides
//     structured logging.
//
// Quick checklist:
//   - Configure env vars: KEYWATCH_SERVER_PORT, KEYWATCH_TARGET_URL, KEYWATCH_TELEGRAM_TOKEN,
//     KEYWATCH_TELEGRAM_CHAT_ID, KEYWATCH_RUN_MODE, KEYWATCH_MONITOR_AUTOSTART, KEYWATCH_HEADLESS_ENABLED
//     and the pubsub project/topic when hits should be fanned out.
//   - Run locally: keywatch serve --config config.yaml (or rely solely on env overrides).
//   - One-off dry run: keywatch check --mode manual --keywords "a,b" prints what would be notified.
package cmd
