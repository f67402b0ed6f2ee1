// Package statsview serves runtime statistics over HTTP while the emulator
// runs. It is only functional when built with the statsview tag:
//
//	go build -tags statsview ./cmd/console
//
// Graphs are then served at localhost:12683/debug/statsview and the
// standard pprof endpoints at localhost:12683/debug/pprof/.
package statsview
