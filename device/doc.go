// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package device assembles buffers and triggers into devices: channel
// sets built from declarative specs, a handle registry, the user-side
// read/write/poll data path and debug instrumentation.
package device
