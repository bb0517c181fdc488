// Package common holds configuration and logging shared by the rKV server,
// client and transport layers: the ServerConfig/ClientConfig structs with
// their socket tuning sections, and the leveled named-logger setup.
package common
