// Package introspect reads table layouts from a MySQL
// INFORMATION_SCHEMA and renders them as Go entity structs.
//
// The reader describes the requested tables (columns, keys and foreign
// key references) and the emitter turns that description into a
// generated source file. Time columns map to time.Time values, which
// requires parseTime=true on the connection DSN.
package introspect
