/*
Package application is a library for building the executables of the
key transparency self-auditor.

Encoding

This module implements the message encoding and decoding for the
communications with the key transparency API. Currently this module only
supports JSON encoding.

Logger

This module implements a generic logging system that can be used by any
application/executable.

Config

This module implements the loading and saving of toml configuration
files, and of the signing public-keys they point to.
*/
package application
