// Package security derives the hardening report exposed by Engine.SecurityReport from a
// flattened view of the engine configuration.
package security
