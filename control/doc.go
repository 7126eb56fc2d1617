// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, metrics and debug introspection for ringq
// deployments.
//
// Provides:
//   - Viper-backed configuration with YAML file, RINGQ_* env overrides and
//     an effective-config renderer
//   - Reload hooks driven by config file changes
//   - Prometheus registry with hook outcome counters, queue depth gauges and
//     interrupt counters
//   - Debug probe registration and state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
