// Package manager runs the client-side sync loop. It owns the lifecycle
// registry and the generation guard, consumes the push session and calls
// the backend REST API. It is structured into small files by concern:
//
//   - manager.go: core Manager type, Run loop, Started and push dispatch.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - collaborators.go: PushSession and Backend, the interfaces the loop drives.
//   - errors.go: error types and helpers (IsModelNotFound, IsInvalidRequest, ...).
//   - events.go: Event, EventPublisher and the broker-backed publisher.
//   - ops.go: lifecycle actions (Download, Load, Unload), Select and Refresh.
//   - generate.go: Generate/CancelGeneration through the guard; recent results.
//   - status_report.go: Status, Views and Ready reporting helpers.
//   - metrics.go: Prometheus collectors for merge outcomes and actions.
//
// Every registry mutation happens on the goroutine running Run. Other
// goroutines hand work to it as tasks, so merges apply in delivery order.
package manager
