// Package application provides application initialization and dependency wiring.
// RunPlan drives the plan command (discover, pack, render), while New builds
// the storage, metrics, handlers, routers and HTTP server used by the serve
// command, keeping the main package focused on CLI parsing.
package application
