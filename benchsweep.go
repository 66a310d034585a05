// Package benchsweep holds build metadata shared by the benchsweep command
// and its MCP server.
package benchsweep

// Version is the benchsweep release version.
const Version = "v0.1.0"
