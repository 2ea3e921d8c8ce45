// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package api defines the contracts of the block exchange: the Block
// transfer unit, the BufferInstance and TriggerLink interfaces, the
// per-channel link a device layer provides, and the sentinel errors
// shared by all implementations.
package api
