// Package common holds the wire types and constants shared by the recall
// daemon and its clients.
package common

// Environment variable names for configuration.
const (
	// DataDirEnv overrides the directory holding the database and config file.
	DataDirEnv = "RECALL_DATA_DIR"

	// ListenEnv overrides the daemon's HTTP listen address.
	ListenEnv = "RECALL_LISTEN"

	// RPCSecretEnv overrides the bearer token required by the RPC endpoint.
	RPCSecretEnv = "RECALL_RPC_SECRET"

	// DebugEnv enables debug logging.
	DebugEnv = "RECALL_DEBUG"
)
