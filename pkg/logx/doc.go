// Package logx configures nudger's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps console output
// readable (short timestamp and caller) while file and JSON output stay
// structured. Level and sinks can be changed at runtime via Service.Apply.
package logx
