// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// ExportService runs retrievals concurrently and materialises files;
// ConflictResolver decides what happens when a download target exists.
package services
