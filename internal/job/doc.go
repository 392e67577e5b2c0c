// Package job defines the job descriptors the runner submits and the
// resolution chain that turns per-job overrides and run defaults into a fully
// resolved Spec.
package job
